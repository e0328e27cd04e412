package bundle

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentloop/app/echoServer/jwtx"
	"rentloop/model"
	bundlesvc "rentloop/service/bundle"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc bundlesvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type bundleItemReq struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gte=1"`
}

type CreateBundleReq struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Description     string          `json:"description"`
	DiscountPercent int             `json:"discount_percent" validate:"required"`
	Items           []bundleItemReq `json:"items" validate:"required,min=1,dive"`
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch bundlesvc.Code(err) {
	case bundlesvc.ErrBadInput, bundlesvc.ErrEmptyBundle:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
	case bundlesvc.ErrBadDiscount:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "discount must be between 5 and 50 percent"})
	case bundlesvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "bundle not found"})
	case bundlesvc.ErrNotOwnItem:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "all bundle items must belong to you"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

// POST /v1/bundles
func (h *Controller) Create(c echo.Context) error {
	var req CreateBundleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	items := make([]model.BundleItem, 0, len(req.Items))
	for _, bi := range req.Items {
		items = append(items, model.BundleItem{ItemID: bi.ItemID, Quantity: bi.Quantity})
	}

	b, err := h.Svc.Create(c.Request().Context(), uid, bundlesvc.CreateReq{
		Name:            req.Name,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		Items:           items,
	})
	if err != nil {
		return h.fail(c, "bundle create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": b})
}

// GET /v1/bundles
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return h.fail(c, "bundle list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/bundles/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	b, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "bundle detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": b})
}
