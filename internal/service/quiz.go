package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/raffle-api/internal/cache"
	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository"
)

var (
	ErrQuestionNotFound = repository.ErrQuestionNotFound
	ErrQuestionExists   = repository.ErrQuestionExists
	ErrAlreadyAttempted = repository.ErrAlreadyAttempted
	ErrNoActiveRaffle   = errors.New("no active raffle")
)

const currentQuestionCacheKey = "quiz:current-question"

type QuizRepository interface {
	CreateQuestion(ctx context.Context, question domain.QuizQuestion) (domain.QuizQuestion, error)
	GetQuestionByWeek(ctx context.Context, weekNumber int) (domain.QuizQuestion, error)
	CreateAttempt(ctx context.Context, attempt domain.UserQuizAttempt) (domain.UserQuizAttempt, error)
	GetAttempt(ctx context.Context, userAddress string, weekNumber int) (domain.UserQuizAttempt, error)
}

type QuizRaffleRepository interface {
	GetActive(ctx context.Context) (domain.WeeklyRaffle, error)
	ListTicketsByOwner(ctx context.Context, ownerAddress string, weekNumber int) ([]domain.RaffleTicket, error)
}

type QuizService struct {
	repo        QuizRepository
	raffleRepo  QuizRaffleRepository
	cache       cache.Cache
	questionTTL time.Duration
}

func NewQuizService(repo QuizRepository, raffleRepo QuizRaffleRepository, store cache.Cache, questionTTL time.Duration) *QuizService {
	if questionTTL == 0 {
		questionTTL = time.Minute
	}

	return &QuizService{
		repo:        repo,
		raffleRepo:  raffleRepo,
		cache:       store,
		questionTTL: questionTTL,
	}
}

// SubmitAnswer scores one attempt at the given week's question. Only the
// active raffle week accepts attempts, so answers cannot be banked for future
// weeks or submitted after a raffle closed. The (user, week) uniqueness is
// enforced by the storage layer, so concurrent duplicate submissions cannot
// both land.
func (s *QuizService) SubmitAnswer(ctx context.Context, userAddress string, weekNumber int, questionID uint, answer string, timeTakenSeconds *int) (domain.QuizResult, error) {
	active, err := s.raffleRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNotFound) {
			return domain.QuizResult{}, ErrNoActiveRaffle
		}

		return domain.QuizResult{}, fmt.Errorf("s.raffleRepo.GetActive -> %w", err)
	}

	if weekNumber != active.WeekNumber {
		return domain.QuizResult{}, ErrRaffleNotActive
	}

	question, err := s.repo.GetQuestionByWeek(ctx, weekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return domain.QuizResult{}, ErrQuestionNotFound
		}

		return domain.QuizResult{}, fmt.Errorf("s.repo.GetQuestionByWeek -> %w", err)
	}

	if question.ID != questionID {
		return domain.QuizResult{}, ErrQuestionNotFound
	}

	isCorrect := normalizeAnswer(answer) == normalizeAnswer(question.CorrectAnswer)

	pointsEarned := 0
	if isCorrect {
		pointsEarned = question.PointsReward
	}

	attempt := domain.UserQuizAttempt{
		UserAddress:      strings.ToLower(userAddress),
		WeekNumber:       weekNumber,
		QuizQuestionID:   question.ID,
		UserAnswer:       answer,
		IsCorrect:        isCorrect,
		PointsEarned:     pointsEarned,
		CanMintTicket:    isCorrect,
		TimeTakenSeconds: timeTakenSeconds,
		AttemptedAt:      time.Now(),
	}

	if _, err = s.repo.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAlreadyAttempted) {
			return domain.QuizResult{}, ErrAlreadyAttempted
		}

		return domain.QuizResult{}, fmt.Errorf("s.repo.CreateAttempt -> %w", err)
	}

	return domain.QuizResult{
		IsCorrect:     isCorrect,
		PointsEarned:  pointsEarned,
		CanMintTicket: isCorrect,
		Explanation:   question.Explanation,
	}, nil
}

// CurrentQuestion returns the active week's question metadata. The correct
// answer is stripped before anything leaves this method.
func (s *QuizService) CurrentQuestion(ctx context.Context) (domain.QuizQuestion, error) {
	if cached, ok, err := s.cache.Get(ctx, currentQuestionCacheKey); err == nil && ok {
		var question domain.QuizQuestion
		if err = json.Unmarshal([]byte(cached), &question); err == nil {
			return question, nil
		}
	} else if err != nil {
		zap.L().Warn("failed to read question cache", zap.Error(err))
	}

	raffle, err := s.raffleRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNotFound) {
			return domain.QuizQuestion{}, ErrNoActiveRaffle
		}

		return domain.QuizQuestion{}, fmt.Errorf("s.raffleRepo.GetActive -> %w", err)
	}

	question, err := s.repo.GetQuestionByWeek(ctx, raffle.WeekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return domain.QuizQuestion{}, ErrQuestionNotFound
		}

		return domain.QuizQuestion{}, fmt.Errorf("s.repo.GetQuestionByWeek -> %w", err)
	}

	question.CorrectAnswer = ""

	if encoded, err := json.Marshal(question); err == nil {
		if err = s.cache.Set(ctx, currentQuestionCacheKey, string(encoded), s.questionTTL); err != nil {
			zap.L().Warn("failed to write question cache", zap.Error(err))
		}
	}

	return question, nil
}

// CreateQuestion seeds a week's question (admin tooling).
func (s *QuizService) CreateQuestion(ctx context.Context, question domain.QuizQuestion) (domain.QuizQuestion, error) {
	question.CreatedAt = time.Now()

	created, err := s.repo.CreateQuestion(ctx, question)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionExists) {
			return domain.QuizQuestion{}, ErrQuestionExists
		}

		return domain.QuizQuestion{}, fmt.Errorf("s.repo.CreateQuestion -> %w", err)
	}

	// The cached copy may belong to the same week; drop it.
	if err = s.cache.Delete(ctx, currentQuestionCacheKey); err != nil {
		zap.L().Warn("failed to invalidate question cache", zap.Error(err))
	}

	return created, nil
}

// UserWeekSnapshot bundles a user's attempt, tickets and mint eligibility for
// one week. A zero weekNumber resolves to the active week.
func (s *QuizService) UserWeekSnapshot(ctx context.Context, userAddress string, weekNumber int) (domain.UserWeekSnapshot, error) {
	userAddress = strings.ToLower(userAddress)

	if weekNumber == 0 {
		active, err := s.raffleRepo.GetActive(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrRaffleNotFound) {
				return domain.UserWeekSnapshot{}, ErrNoActiveRaffle
			}

			return domain.UserWeekSnapshot{}, fmt.Errorf("s.raffleRepo.GetActive -> %w", err)
		}
		weekNumber = active.WeekNumber
	}

	snapshot := domain.UserWeekSnapshot{
		UserAddress: userAddress,
		WeekNumber:  weekNumber,
		Tickets:     []domain.RaffleTicket{},
	}

	attempt, err := s.repo.GetAttempt(ctx, userAddress, weekNumber)
	switch {
	case err == nil:
		snapshot.Attempt = &attempt
	case !errors.Is(err, repository.ErrAttemptNotFound):
		return domain.UserWeekSnapshot{}, fmt.Errorf("s.repo.GetAttempt -> %w", err)
	}

	tickets, err := s.raffleRepo.ListTicketsByOwner(ctx, userAddress, weekNumber)
	if err != nil {
		return domain.UserWeekSnapshot{}, fmt.Errorf("s.raffleRepo.ListTicketsByOwner -> %w", err)
	}
	snapshot.Tickets = tickets

	snapshot.CanMint = snapshot.Attempt != nil && snapshot.Attempt.CanMintTicket && len(tickets) == 0

	return snapshot, nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
