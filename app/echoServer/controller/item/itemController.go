package item

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentloop/app/echoServer/jwtx"
	"rentloop/model"
	itemsvc "rentloop/service/item"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type Controller struct {
	Svc itemsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (h *Controller) toReq(req UpsertItemReq) itemsvc.CreateReq {
	return itemsvc.CreateReq{
		Title:          req.Title,
		Description:    req.Description,
		Category:       model.Category(req.Category),
		PricePerHour:   req.PricePerHour,
		PricePerDay:    req.PricePerDay,
		Deposit:        req.Deposit,
		AddressText:    req.AddressText,
		Lat:            req.Lat,
		Lng:            req.Lng,
		PhotoURL:       req.PhotoURL,
		CarbonOffsetKg: req.CarbonOffsetKg,
	}
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch itemsvc.Code(err) {
	case itemsvc.ErrBadInput:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
	case itemsvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
	case itemsvc.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case itemsvc.ErrNoGeocode:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "address could not be resolved"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

// POST /v1/items
func (h *Controller) Create(c echo.Context) error {
	var req UpsertItemReq
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

	it, err := h.Svc.Create(c.Request().Context(), uid, h.toReq(req))
	if err != nil {
		return h.fail(c, "item create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": it})
}

// PUT /v1/items/:id
func (h *Controller) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpsertItemReq
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

	it, err := h.Svc.Update(c.Request().Context(), uid, id, h.toReq(req))
	if err != nil {
		return h.fail(c, "item update", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": it})
}

// DELETE /v1/items/:id
func (h *Controller) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	if err := h.Svc.Delete(c.Request().Context(), uid, id); err != nil {
		return h.fail(c, "item delete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// PATCH /v1/items/:id/availability
func (h *Controller) SetAvailability(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AvailabilityReq
	if err := c.Bind(&req); err != nil || req.Available == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	if err := h.Svc.SetAvailability(c.Request().Context(), uid, id, *req.Available); err != nil {
		return h.fail(c, "item availability", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// GET /v1/items/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	it, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "item detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": it})
}

// GET /v1/items/search
// @Summary  Search items near a point
// @Tags     items
// @Param    lat       query  number  true   "latitude"
// @Param    lng       query  number  true   "longitude"
// @Param    radius    query  number  false  "radius in km, default 50"
// @Param    category  query  string  false  "category filter"
// @Router   /v1/items/search [get]
func (h *Controller) Search(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if errLat != nil || errLng != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "lat and lng are required"})
	}

	req := itemsvc.SearchReq{Lat: lat, Lng: lng}
	if v := c.QueryParam("radius"); v != "" {
		req.RadiusKM, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.QueryParam("category"); v != "" {
		req.Category = model.Category(v)
	}
	if v := c.QueryParam("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			req.MinPrice = &d
		}
	}
	if v := c.QueryParam("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			req.MaxPrice = &d
		}
	}
	req.Page, _ = strconv.Atoi(c.QueryParam("page"))
	req.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	page, err := h.Svc.Search(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "item search", err)
	}
	return c.JSON(http.StatusOK, page)
}
