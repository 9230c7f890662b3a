package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&WeeklyRaffle{},
		&RaffleTicket{},
		&RaffleWinner{},
		&QuizQuestion{},
		&UserQuizAttempt{},
	)
}
