package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentloop/app/echoServer/jwtx"
	paymentsvc "rentloop/service/payment"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *slog.Logger
}

// POST /v1/bookings/:id/deposit-intent
// @Summary  Open a card hold for a booking's deposit
// @Tags     payments
// @Produce  json
// @Success  201  {object}  map[string]any
// @Failure  403  {object}  map[string]any
// @Failure  409  {object}  map[string]any
// @Router   /v1/bookings/{id}/deposit-intent [post]
func (h *Controller) DepositIntent(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.DepositIntent(c.Request().Context(), uid, id)
	if err != nil {
		switch paymentsvc.Code(err) {
		case paymentsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "booking not found"})
		case paymentsvc.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case paymentsvc.ErrNoDeposit:
			return c.JSON(http.StatusConflict, echo.Map{"message": "booking has no deposit"})
		case paymentsvc.ErrBadState:
			return c.JSON(http.StatusConflict, echo.Map{"message": "deposit can only be held before the rental starts"})
		case paymentsvc.ErrNotConfigured:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "card payments are not configured"})
		default:
			h.Log.Error("deposit intent", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": out})
}
