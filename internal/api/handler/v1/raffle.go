package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/raffle-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/service"
)

type RaffleService interface {
	CurrentRaffle(ctx context.Context) (domain.WeeklyRaffle, error)
	WinnerByWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error)
}

type RaffleHandler struct {
	svc RaffleService
}

func NewRaffleHandler(svc RaffleService) *RaffleHandler {
	return &RaffleHandler{
		svc: svc,
	}
}

// HandleGetCurrentRaffle godoc
// @Summary      Get the active raffle
// @Tags         raffles
// @Produce      json
// @Success      200      {object}   domain.WeeklyRaffle
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /raffles/current [get]
func (h *RaffleHandler) HandleGetCurrentRaffle(ctx *gin.Context) {
	raffle, err := h.svc.CurrentRaffle(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoActiveRaffle) {
			response.RenderErr(ctx, response.ErrNotFound(err))

			return
		}

		err = fmt.Errorf("v1.HandleGetCurrentRaffle -> h.svc.CurrentRaffle -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, raffle)
}

// HandleGetWinner godoc
// @Summary      Get the winner snapshot for a completed week
// @Tags         raffles
// @Produce      json
// @Param        week     path       int true "week number"
// @Success      200      {object}   domain.RaffleWinner
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /raffles/{week}/winner [get]
func (h *RaffleHandler) HandleGetWinner(ctx *gin.Context) {
	week, err := strconv.Atoi(ctx.Param("week"))
	if err != nil || week < 1 {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("week must be a positive integer")))

		return
	}

	winner, err := h.svc.WinnerByWeek(ctx.Request.Context(), week)
	if err != nil {
		if errors.Is(err, service.ErrWinnerNotFound) {
			response.RenderErr(ctx, response.ErrNotFound(err))

			return
		}

		err = fmt.Errorf("v1.HandleGetWinner -> h.svc.WinnerByWeek -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, winner)
}
