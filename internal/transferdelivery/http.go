// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.Transfer, error)
	ListInvolving(ctx context.Context, accountID string) ([]domain.Transfer, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return web.GetErrorMsg(ve)
	}

	return err.Error()
}

type request struct {
	SrcAccountID string           `json:"srcAccountId" binding:"required,uuid"`
	DstAccountID string           `json:"dstAccountId" binding:"required,uuid,nefield=SrcAccountID"`
	Amount       *decimal.Decimal `json:"amount" binding:"required"`
}

type data struct {
	Transfer domain.Transfer `json:"transfer"`
}

// Create handles http request to transfer money between two accounts.
//
// When the route is behind middleware.AuthMiddleware the source account must
// belong to the authenticated user.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	if payload, ok := middleware.AuthPayload(gctx); ok {
		if domain.AccountIDFromUsername(payload.Username) != req.SrcAccountID {
			l.Warn().Str("username", payload.Username).Str("src_account_id", req.SrcAccountID).Send()
			gctx.JSON(http.StatusForbidden, web.Error(domain.ErrInvalidOwner))

			return
		}
	}

	arg := domain.CreateTransferParams{
		SrcAccountID: req.SrcAccountID,
		DstAccountID: req.DstAccountID,
		Amount:       *req.Amount,
	}

	result, err := h.service.Transfer(ctx, arg)
	if err != nil {
		l.Info().Err(err).Send()

		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		case errors.Is(err, domain.ErrAccountNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(err))
		case errors.Is(err, domain.ErrInsufficientBalance):
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
		case errors.Is(err, domain.ErrConcurrentModification):
			gctx.JSON(http.StatusInternalServerError, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{result}})
}

type listRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type listData struct {
	Transfers []domain.Transfer `json:"transfers"`
}

// List handles http request to list transfers sent or received by the account.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	transfers, err := h.service.ListInvolving(ctx, req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: listData{transfers}})
}
