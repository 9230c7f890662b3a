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

type QuizService interface {
	CurrentQuestion(ctx context.Context) (domain.QuizQuestion, error)
	SubmitAnswer(ctx context.Context, userAddress string, weekNumber int, questionID uint, answer string, timeTakenSeconds *int) (domain.QuizResult, error)
	UserWeekSnapshot(ctx context.Context, userAddress string, weekNumber int) (domain.UserWeekSnapshot, error)
}

type QuizHandler struct {
	svc QuizService
}

func NewQuizHandler(svc QuizService) *QuizHandler {
	return &QuizHandler{
		svc: svc,
	}
}

// HandleGetCurrentQuestion godoc
// @Summary      Get the active week's quiz question
// @Tags         quiz
// @Produce      json
// @Success      200      {object}   domain.QuizQuestion
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /quiz/current [get]
func (h *QuizHandler) HandleGetCurrentQuestion(ctx *gin.Context) {
	question, err := h.svc.CurrentQuestion(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoActiveRaffle) || errors.Is(err, service.ErrQuestionNotFound) {
			response.RenderErr(ctx, response.ErrNotFound(err))

			return
		}

		err = fmt.Errorf("v1.HandleGetCurrentQuestion -> h.svc.CurrentQuestion -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, question)
}

// HandleSubmitAnswer godoc
// @Summary      Submit an answer for the week's question
// @Tags         quiz
// @Produce      json
// @Param        request   body      request.SubmitAnswerRequest true "request body"
// @Success      200      {object}   domain.QuizResult
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /quiz/submit [post]
func (h *QuizHandler) HandleSubmitAnswer(ctx *gin.Context) {
	req := request.SubmitAnswerRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	result, err := h.svc.SubmitAnswer(ctx.Request.Context(), req.UserAddress, req.WeekNumber, req.QuestionID, req.Answer, req.TimeTakenSeconds)
	if err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) || errors.Is(err, service.ErrNoActiveRaffle) {
			response.RenderErr(ctx, response.ErrNotFound(err))

			return
		}
		if errors.Is(err, service.ErrAlreadyAttempted) || errors.Is(err, service.ErrRaffleNotActive) {
			response.RenderErr(ctx, response.ErrConflict(err))

			return
		}

		err = fmt.Errorf("v1.HandleSubmitAnswer -> h.svc.SubmitAnswer -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, result)
}

// HandleGetUserWeek godoc
// @Summary      Get a user's attempt and tickets for a week
// @Tags         quiz
// @Produce      json
// @Param        address   path      string true "user chain address"
// @Param        week      query     int    false "week number, defaults to the active week"
// @Success      200      {object}   domain.UserWeekSnapshot
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /users/{address} [get]
func (h *QuizHandler) HandleGetUserWeek(ctx *gin.Context) {
	address := ctx.Param("address")

	week := 0
	if raw := ctx.Query("week"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RenderErr(ctx, response.ErrBadRequest(errors.New("week must be a positive integer")))

			return
		}
		week = parsed
	}

	snapshot, err := h.svc.UserWeekSnapshot(ctx.Request.Context(), address, week)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveRaffle) {
			response.RenderErr(ctx, response.ErrNotFound(err))

			return
		}

		err = fmt.Errorf("v1.HandleGetUserWeek -> h.svc.UserWeekSnapshot -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, snapshot)
}
