package wallet

import (
	"log/slog"
	"net/http"

	"rentloop/app/echoServer/jwtx"
	walletsvc "rentloop/service/wallet"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc walletsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type RedeemReq struct {
	Points int64 `json:"points" validate:"required,gte=100"`
}

// GET /v1/wallet
// @Summary  Wallet overview with derived tier
// @Tags     wallet
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /v1/wallet [get]
func (h *Controller) Overview(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	out, err := h.Svc.Overview(c.Request().Context(), uid)
	if err != nil {
		if walletsvc.Code(err) == walletsvc.ErrWalletNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "wallet not found"})
		}
		h.Log.Error("wallet overview", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/wallet/ledger
func (h *Controller) Ledger(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := h.Svc.Transactions(c.Request().Context(), uid)
	if err != nil {
		if walletsvc.Code(err) == walletsvc.ErrWalletNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "wallet not found"})
		}
		h.Log.Error("wallet ledger", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/wallet/redeem
// @Summary  Redeem reward points for wallet credit
// @Tags     wallet
// @Accept   json
// @Produce  json
// @Param    payload  body  RedeemReq  true  "Redeem payload"
// @Success  200  {object}  map[string]any
// @Failure  409  {object}  map[string]any "not enough points"
// @Router   /v1/wallet/redeem [post]
func (h *Controller) Redeem(c echo.Context) error {
	var req RedeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "minimum redemption is 100 points"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.RedeemPoints(c.Request().Context(), uid, req.Points)
	if err != nil {
		switch walletsvc.Code(err) {
		case walletsvc.ErrInsufficientPoints:
			return c.JSON(http.StatusConflict, echo.Map{"message": "not enough points"})
		case walletsvc.ErrWalletNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "wallet not found"})
		default:
			h.Log.Error("wallet redeem", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "points redeemed", "data": out})
}
