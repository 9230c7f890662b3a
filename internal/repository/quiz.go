package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository/dao"
)

var (
	ErrQuestionNotFound = dao.ErrQuestionNotFound
	ErrQuestionExists   = dao.ErrQuestionExists
	ErrAttemptNotFound  = dao.ErrAttemptNotFound
	ErrAlreadyAttempted = dao.ErrAlreadyAttempted
)

type QuizDAO interface {
	InsertQuestion(ctx context.Context, question dao.QuizQuestion) (dao.QuizQuestion, error)
	GetQuestionByWeek(ctx context.Context, weekNumber int) (dao.QuizQuestion, error)
	InsertAttempt(ctx context.Context, attempt dao.UserQuizAttempt) (dao.UserQuizAttempt, error)
	GetAttempt(ctx context.Context, userAddress string, weekNumber int) (dao.UserQuizAttempt, error)
	CountAttempts(ctx context.Context) (int64, error)
}

type QuizRepository struct {
	dao QuizDAO
}

func NewQuizRepository(dao QuizDAO) *QuizRepository {
	return &QuizRepository{
		dao: dao,
	}
}

func (r *QuizRepository) questionDomainToDao(question domain.QuizQuestion) dao.QuizQuestion {
	return dao.QuizQuestion{
		ID:            question.ID,
		WeekNumber:    question.WeekNumber,
		QuestionText:  question.QuestionText,
		CorrectAnswer: question.CorrectAnswer,
		PointsReward:  question.PointsReward,
		Difficulty:    question.Difficulty,
		Explanation:   question.Explanation,
		CreatedAt:     question.CreatedAt,
	}
}

func (r *QuizRepository) questionDaoToDomain(question dao.QuizQuestion) domain.QuizQuestion {
	return domain.QuizQuestion{
		ID:            question.ID,
		WeekNumber:    question.WeekNumber,
		QuestionText:  question.QuestionText,
		CorrectAnswer: question.CorrectAnswer,
		PointsReward:  question.PointsReward,
		Difficulty:    question.Difficulty,
		Explanation:   question.Explanation,
		CreatedAt:     question.CreatedAt,
	}
}

func (r *QuizRepository) attemptDomainToDao(attempt domain.UserQuizAttempt) dao.UserQuizAttempt {
	return dao.UserQuizAttempt{
		ID:               attempt.ID,
		UserAddress:      attempt.UserAddress,
		WeekNumber:       attempt.WeekNumber,
		QuizQuestionID:   attempt.QuizQuestionID,
		UserAnswer:       attempt.UserAnswer,
		IsCorrect:        attempt.IsCorrect,
		PointsEarned:     attempt.PointsEarned,
		CanMintTicket:    attempt.CanMintTicket,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		AttemptedAt:      attempt.AttemptedAt,
	}
}

func (r *QuizRepository) attemptDaoToDomain(attempt dao.UserQuizAttempt) domain.UserQuizAttempt {
	return domain.UserQuizAttempt{
		ID:               attempt.ID,
		UserAddress:      attempt.UserAddress,
		WeekNumber:       attempt.WeekNumber,
		QuizQuestionID:   attempt.QuizQuestionID,
		UserAnswer:       attempt.UserAnswer,
		IsCorrect:        attempt.IsCorrect,
		PointsEarned:     attempt.PointsEarned,
		CanMintTicket:    attempt.CanMintTicket,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		AttemptedAt:      attempt.AttemptedAt,
	}
}

func (r *QuizRepository) CreateQuestion(ctx context.Context, question domain.QuizQuestion) (domain.QuizQuestion, error) {
	created, err := r.dao.InsertQuestion(ctx, r.questionDomainToDao(question))
	if err != nil {
		return domain.QuizQuestion{}, err
	}

	return r.questionDaoToDomain(created), nil
}

func (r *QuizRepository) GetQuestionByWeek(ctx context.Context, weekNumber int) (domain.QuizQuestion, error) {
	question, err := r.dao.GetQuestionByWeek(ctx, weekNumber)
	if err != nil {
		return domain.QuizQuestion{}, err
	}

	return r.questionDaoToDomain(question), nil
}

func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt domain.UserQuizAttempt) (domain.UserQuizAttempt, error) {
	created, err := r.dao.InsertAttempt(ctx, r.attemptDomainToDao(attempt))
	if err != nil {
		return domain.UserQuizAttempt{}, err
	}

	return r.attemptDaoToDomain(created), nil
}

func (r *QuizRepository) GetAttempt(ctx context.Context, userAddress string, weekNumber int) (domain.UserQuizAttempt, error) {
	attempt, err := r.dao.GetAttempt(ctx, userAddress, weekNumber)
	if err != nil {
		return domain.UserQuizAttempt{}, err
	}

	return r.attemptDaoToDomain(attempt), nil
}

func (r *QuizRepository) CountAttempts(ctx context.Context) (int, error) {
	count, err := r.dao.CountAttempts(ctx)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountAttempts -> %w", err)
	}

	return int(count), nil
}
