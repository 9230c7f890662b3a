package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/raffle-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/raffle-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/ledger"
	"github.com/vietanh2810/raffle-api/internal/service"
)

type TicketService interface {
	MintTicket(ctx context.Context, userAddress string, weekNumber int, transactionHash string, amountPaid float64) (domain.RaffleTicket, error)
}

type TicketHandler struct {
	svc TicketService
}

func NewTicketHandler(svc TicketService) *TicketHandler {
	return &TicketHandler{
		svc: svc,
	}
}

// HandleMintTicket godoc
// @Summary      Mint a raffle ticket from a verified payment
// @Tags         tickets
// @Produce      json
// @Param        request   body      request.MintTicketRequest true "request body"
// @Success      201      {object}   response.MintTicketResponse
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      422      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /tickets/mint [post]
func (h *TicketHandler) HandleMintTicket(ctx *gin.Context) {
	req := request.MintTicketRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	ticket, err := h.svc.MintTicket(ctx.Request.Context(), req.UserAddress, req.WeekNumber, req.TransactionHash, req.AmountPaid)
	if err != nil {
		renderMintErr(ctx, err)

		return
	}

	ctx.JSON(http.StatusCreated, response.MintTicketResponse{
		Message: "ticket minted",
		Ticket:  ticket,
	})
}

func renderMintErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotEligible):
		response.RenderErr(ctx, response.ErrForbidden(err))
	case errors.Is(err, service.ErrRaffleNotActive):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrDuplicateTransaction):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrStorageConflict):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, ledger.ErrTxNotFound),
		errors.Is(err, ledger.ErrTxFailed),
		errors.Is(err, ledger.ErrNotFinalized),
		errors.Is(err, ledger.ErrSenderMismatch),
		errors.Is(err, ledger.ErrWrongRecipient),
		errors.Is(err, ledger.ErrAmountMismatch),
		errors.Is(err, ledger.ErrBelowMinimum):
		response.RenderErr(ctx, response.ErrUnprocessable(err))
	case errors.Is(err, ledger.ErrChainUnavailable):
		response.RenderErr(ctx, response.ErrServiceUnavailable(err))
	default:
		err = fmt.Errorf("v1.HandleMintTicket -> h.svc.MintTicket -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}
