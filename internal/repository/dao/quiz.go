package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrQuestionNotFound = errors.New("quiz question not found")
	ErrQuestionExists   = errors.New("quiz question already exists for this week")
	ErrAttemptNotFound  = errors.New("quiz attempt not found")
	ErrAlreadyAttempted = errors.New("user already attempted this week's quiz")
)

type QuizQuestion struct {
	ID uint `gorm:"primaryKey"`

	WeekNumber    int    `gorm:"unique;not null"`
	QuestionText  string `gorm:"not null"`
	CorrectAnswer string `gorm:"not null"`
	PointsReward  int    `gorm:"not null"`
	Difficulty    string `gorm:"not null"`
	Explanation   string

	CreatedAt time.Time `gorm:"not null"`
}

type UserQuizAttempt struct {
	ID uint `gorm:"primaryKey"`

	UserAddress    string `gorm:"not null;uniqueIndex:idx_attempts_user_week"`
	WeekNumber     int    `gorm:"not null;uniqueIndex:idx_attempts_user_week"`
	QuizQuestionID uint   `gorm:"not null"`

	UserAnswer    string `gorm:"not null"`
	IsCorrect     bool   `gorm:"not null"`
	PointsEarned  int    `gorm:"not null"`
	CanMintTicket bool   `gorm:"not null"`

	TimeTakenSeconds *int
	AttemptedAt      time.Time `gorm:"not null"`
}

type QuizDAO struct {
	db *gorm.DB
}

func NewQuizDAO(db *gorm.DB) *QuizDAO {
	return &QuizDAO{
		db: db,
	}
}

func (d *QuizDAO) InsertQuestion(ctx context.Context, question QuizQuestion) (QuizQuestion, error) {
	result := d.db.WithContext(ctx).Create(&question)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return QuizQuestion{}, ErrQuestionExists
		}

		return QuizQuestion{}, result.Error
	}

	return question, nil
}

func (d *QuizDAO) GetQuestionByWeek(ctx context.Context, weekNumber int) (QuizQuestion, error) {
	var question QuizQuestion

	result := d.db.WithContext(ctx).First(&question, "week_number = ?", weekNumber)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return QuizQuestion{}, ErrQuestionNotFound
		}

		return QuizQuestion{}, result.Error
	}

	return question, nil
}

// InsertAttempt relies on the (user_address, week_number) unique index for
// duplicate detection, never on a prior read.
func (d *QuizDAO) InsertAttempt(ctx context.Context, attempt UserQuizAttempt) (UserQuizAttempt, error) {
	result := d.db.WithContext(ctx).Create(&attempt)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return UserQuizAttempt{}, ErrAlreadyAttempted
		}

		return UserQuizAttempt{}, result.Error
	}

	return attempt, nil
}

func (d *QuizDAO) GetAttempt(ctx context.Context, userAddress string, weekNumber int) (UserQuizAttempt, error) {
	var attempt UserQuizAttempt

	result := d.db.WithContext(ctx).
		First(&attempt, "user_address = ? AND week_number = ?", userAddress, weekNumber)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return UserQuizAttempt{}, ErrAttemptNotFound
		}

		return UserQuizAttempt{}, result.Error
	}

	return attempt, nil
}

func (d *QuizDAO) CountAttempts(ctx context.Context) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).Model(&UserQuizAttempt{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}
