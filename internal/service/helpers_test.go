package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository"
	"github.com/vietanh2810/raffle-api/internal/repository/dao"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache database so every pooled connection sees the same
	// in-memory state.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// sqlite takes table locks under shared cache, so concurrent test
	// goroutines queue on a single connection instead of racing into
	// "table is locked" errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dao.InitTables(db))

	return db
}

func newTestRepos(t *testing.T) (*repository.RaffleRepository, *repository.QuizRepository) {
	t.Helper()

	db := newTestDB(t)

	return repository.NewRaffleRepository(dao.NewRaffleDAO(db)),
		repository.NewQuizRepository(dao.NewQuizDAO(db))
}

func seedActiveRaffle(t *testing.T, repo *repository.RaffleRepository, weekNumber int) domain.WeeklyRaffle {
	t.Helper()

	raffle, err := repo.Create(context.Background(), domain.WeeklyRaffle{
		WeekNumber: weekNumber,
		Status:     domain.RaffleActive,
		StartAt:    time.Now().Add(-time.Hour),
		EndAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	return raffle
}

func seedDueRaffle(t *testing.T, repo *repository.RaffleRepository, weekNumber int) domain.WeeklyRaffle {
	t.Helper()

	raffle, err := repo.Create(context.Background(), domain.WeeklyRaffle{
		WeekNumber: weekNumber,
		Status:     domain.RaffleActive,
		StartAt:    time.Now().Add(-8 * 24 * time.Hour),
		EndAt:      time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	return raffle
}

func seedQuestion(t *testing.T, repo *repository.QuizRepository, weekNumber int, answer string) domain.QuizQuestion {
	t.Helper()

	question, err := repo.CreateQuestion(context.Background(), domain.QuizQuestion{
		WeekNumber:    weekNumber,
		QuestionText:  "What consensus mechanism does Ethereum use?",
		CorrectAnswer: answer,
		PointsReward:  10,
		Difficulty:    "easy",
		Explanation:   "Ethereum switched to proof of stake in 2022.",
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	return question
}

func seedCorrectAttempt(t *testing.T, repo *repository.QuizRepository, userAddress string, weekNumber int, questionID uint) domain.UserQuizAttempt {
	t.Helper()

	attempt, err := repo.CreateAttempt(context.Background(), domain.UserQuizAttempt{
		UserAddress:    strings.ToLower(userAddress),
		WeekNumber:     weekNumber,
		QuizQuestionID: questionID,
		UserAnswer:     "proof of stake",
		IsCorrect:      true,
		PointsEarned:   10,
		CanMintTicket:  true,
		AttemptedAt:    time.Now(),
	})
	require.NoError(t, err)

	return attempt
}

type stubVerifier struct {
	details domain.PaymentDetails
	err     error
	calls   int
}

func (v *stubVerifier) VerifyPayment(_ context.Context, transactionHash string, expectedAmount float64, expectedSender string) (domain.PaymentDetails, error) {
	v.calls++

	if v.err != nil {
		return domain.PaymentDetails{}, v.err
	}

	details := v.details
	if details.TransactionHash == "" {
		details.TransactionHash = transactionHash
	}
	if details.Sender == "" {
		details.Sender = expectedSender
	}
	if details.Amount == 0 {
		details.Amount = expectedAmount
	}

	return details, nil
}

type stubSender struct {
	hash  string
	err   error
	calls int
}

func (s *stubSender) Send(_ context.Context, _ string, _ float64) (string, error) {
	s.calls++

	if s.err != nil {
		return "", s.err
	}

	return s.hash, nil
}
