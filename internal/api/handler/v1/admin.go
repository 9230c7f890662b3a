package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/raffle-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/raffle-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/service"
)

type AdminLifecycleService interface {
	ProcessDueRaffles(ctx context.Context) (int, error)
	EnsureNextRaffleExists(ctx context.Context) (domain.WeeklyRaffle, error)
	SelectWinnerManually(ctx context.Context, weekNumber int, ticketID uint) (domain.RaffleWinner, error)
	Stats(ctx context.Context) (domain.RaffleStats, error)
}

type AdminPayoutService interface {
	DistributeForWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error)
}

type AdminQuizService interface {
	CreateQuestion(ctx context.Context, question domain.QuizQuestion) (domain.QuizQuestion, error)
}

type AdminHandler struct {
	lifecycle AdminLifecycleService
	payout    AdminPayoutService
	quiz      AdminQuizService
}

func NewAdminHandler(lifecycle AdminLifecycleService, payout AdminPayoutService, quiz AdminQuizService) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		payout:    payout,
		quiz:      quiz,
	}
}

// HandleProcessRaffles godoc
// @Summary      Close due raffles and open the next week
// @Tags         admin
// @Produce      json
// @Success      200      {object}   response.ProcessRafflesResponse
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/raffles/process [post]
// @Security     BearerAuth
func (h *AdminHandler) HandleProcessRaffles(ctx *gin.Context) {
	processed, err := h.lifecycle.ProcessDueRaffles(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleProcessRaffles -> h.lifecycle.ProcessDueRaffles -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	active, err := h.lifecycle.EnsureNextRaffleExists(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleProcessRaffles -> h.lifecycle.EnsureNextRaffleExists -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.ProcessRafflesResponse{
		Message:        "raffles processed",
		ProcessedCount: processed,
		ActiveRaffle:   active,
	})
}

// HandleSelectWinner godoc
// @Summary      Manually assign a week's winning ticket
// @Tags         admin
// @Produce      json
// @Param        week     path       int true "week number"
// @Param        request  body       request.SelectWinnerRequest true "request body"
// @Success      200      {object}   domain.RaffleWinner
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/raffles/{week}/select-winner [post]
// @Security     BearerAuth
func (h *AdminHandler) HandleSelectWinner(ctx *gin.Context) {
	week, err := strconv.Atoi(ctx.Param("week"))
	if err != nil || week < 1 {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("week must be a positive integer")))

		return
	}

	req := request.SelectWinnerRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	winner, err := h.lifecycle.SelectWinnerManually(ctx.Request.Context(), week, req.TicketID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrRaffleNotFound):
			response.RenderErr(ctx, response.ErrNotFound(err))
		case errors.Is(err, service.ErrTicketWeekMismatch):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrWinnerExists):
			response.RenderErr(ctx, response.ErrConflict(err))
		default:
			err = fmt.Errorf("v1.HandleSelectWinner -> h.lifecycle.SelectWinnerManually -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusOK, winner)
}

// HandleGetStats godoc
// @Summary      Get raffle engine statistics
// @Tags         admin
// @Produce      json
// @Success      200      {object}   domain.RaffleStats
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/stats [get]
// @Security     BearerAuth
func (h *AdminHandler) HandleGetStats(ctx *gin.Context) {
	stats, err := h.lifecycle.Stats(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleGetStats -> h.lifecycle.Stats -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// HandleCreateQuestion godoc
// @Summary      Seed a week's quiz question
// @Tags         admin
// @Produce      json
// @Param        request   body      request.CreateQuestionRequest true "request body"
// @Success      201      {object}   domain.QuizQuestion
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/questions [post]
// @Security     BearerAuth
func (h *AdminHandler) HandleCreateQuestion(ctx *gin.Context) {
	req := request.CreateQuestionRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	question, err := h.quiz.CreateQuestion(ctx.Request.Context(), domain.QuizQuestion{
		WeekNumber:    req.WeekNumber,
		QuestionText:  req.QuestionText,
		CorrectAnswer: req.CorrectAnswer,
		PointsReward:  req.PointsReward,
		Difficulty:    req.Difficulty,
		Explanation:   req.Explanation,
	})
	if err != nil {
		if errors.Is(err, service.ErrQuestionExists) {
			response.RenderErr(ctx, response.ErrConflict(err))

			return
		}

		err = fmt.Errorf("v1.HandleCreateQuestion -> h.quiz.CreateQuestion -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusCreated, question)
}

// HandleDistributePrize godoc
// @Summary      Distribute the prize for a week's winner
// @Tags         admin
// @Produce      json
// @Param        week     path       int true "week number"
// @Success      200      {object}   response.DistributePrizeResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /admin/winners/{week}/distribute [post]
// @Security     BearerAuth
func (h *AdminHandler) HandleDistributePrize(ctx *gin.Context) {
	week, err := strconv.Atoi(ctx.Param("week"))
	if err != nil || week < 1 {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("week must be a positive integer")))

		return
	}

	winner, err := h.payout.DistributeForWeek(ctx.Request.Context(), week)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWinnerNotFound):
			response.RenderErr(ctx, response.ErrNotFound(err))
		case errors.Is(err, service.ErrPrizeAlreadyClaimed):
			response.RenderErr(ctx, response.ErrConflict(err))
		case errors.Is(err, service.ErrPayoutFailed):
			response.RenderErr(ctx, response.ErrServiceUnavailable(err))
		default:
			err = fmt.Errorf("v1.HandleDistributePrize -> h.payout.DistributeForWeek -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusOK, response.DistributePrizeResponse{
		Message: "prize distributed",
		Winner:  winner,
	})
}
