package booking

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentloop/app/echoServer/jwtx"
	"rentloop/model"
	bookingsvc "rentloop/service/booking"
	walletsvc "rentloop/service/wallet"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc bookingsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch bookingsvc.Code(err) {
	case bookingsvc.ErrNotFoundOrUnavailable:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found or unavailable"})
	case bookingsvc.ErrSelfBooking:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "you cannot book your own listing"})
	case bookingsvc.ErrInvalidTimeRange:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "end time must be after start time"})
	case bookingsvc.ErrPastStartTime:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "start time is in the past"})
	case bookingsvc.ErrSlotConflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": "requested window overlaps an existing booking"})
	case bookingsvc.ErrBadCredit:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "wallet credit exceeds booking total"})
	case bookingsvc.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case bookingsvc.ErrInvalidTransition:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case bookingsvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "booking not found"})
	default:
		if walletsvc.Code(err) == walletsvc.ErrInsufficientFunds {
			return c.JSON(http.StatusConflict, echo.Map{"message": "insufficient wallet balance"})
		}
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

// POST /v1/bookings
// @Summary  Create a booking request
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    payload  body  CreateBookingReq  true  "Booking payload"
// @Success  201  {object}  map[string]any
// @Failure  400  {object}  map[string]any
// @Failure  409  {object}  map[string]any "slot conflict"
// @Router   /v1/bookings [post]
func (h *Controller) Create(c echo.Context) error {
	var req CreateBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	var target model.BookingTarget
	switch {
	case req.ItemID != nil && req.BundleID == nil:
		target = model.ItemTarget(*req.ItemID)
	case req.BundleID != nil && req.ItemID == nil:
		target = model.BundleTarget(*req.BundleID)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "exactly one of item_id and bundle_id is required"})
	}

	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	b, err := h.Svc.Create(c.Request().Context(), uid, bookingsvc.CreateReq{
		Target:       target,
		Start:        req.StartTime,
		End:          req.EndTime,
		WalletCredit: req.WalletCredit,
	})
	if err != nil {
		return h.fail(c, "booking create", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "booking requested",
		"booking_code": b.Code,
		"data":         b,
	})
}

func (h *Controller) bookingID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Controller) transition(c echo.Context, op string,
	do func(ctx echo.Context, uid, id int64) (*model.Booking, error), message string) error {

	id, ok := h.bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	b, err := do(c, uid, id)
	if err != nil {
		return h.fail(c, op, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      message,
		"booking_code": b.Code,
		"status":       b.Status,
	})
}

// POST /v1/bookings/:id/accept
func (h *Controller) Accept(c echo.Context) error {
	return h.transition(c, "booking accept", func(ctx echo.Context, uid, id int64) (*model.Booking, error) {
		return h.Svc.Accept(ctx.Request().Context(), uid, id)
	}, "booking accepted")
}

// POST /v1/bookings/:id/reject
func (h *Controller) Reject(c echo.Context) error {
	return h.transition(c, "booking reject", func(ctx echo.Context, uid, id int64) (*model.Booking, error) {
		return h.Svc.Reject(ctx.Request().Context(), uid, id)
	}, "booking rejected")
}

// POST /v1/bookings/:id/activate
func (h *Controller) Activate(c echo.Context) error {
	return h.transition(c, "booking activate", func(ctx echo.Context, uid, id int64) (*model.Booking, error) {
		return h.Svc.Activate(ctx.Request().Context(), uid, id)
	}, "rental started")
}

// POST /v1/bookings/:id/dispute
func (h *Controller) Dispute(c echo.Context) error {
	return h.transition(c, "booking dispute", func(ctx echo.Context, uid, id int64) (*model.Booking, error) {
		return h.Svc.Dispute(ctx.Request().Context(), uid, id)
	}, "booking disputed")
}

// POST /v1/bookings/:id/complete
// @Summary  Complete an active booking and settle the ledger
// @Tags     bookings
// @Produce  json
// @Success  200  {object}  map[string]any
// @Failure  403  {object}  map[string]any
// @Failure  409  {object}  map[string]any "not active"
// @Router   /v1/bookings/{id}/complete [post]
func (h *Controller) Complete(c echo.Context) error {
	id, ok := h.bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Complete(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "booking complete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "booking completed",
		"booking_code":  out.Booking.Code,
		"renter_points": out.RenterPoints,
		"owner_points":  out.OwnerPoints,
		"data":          out.Booking,
	})
}

// GET /v1/bookings/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := h.bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	b, err := h.Svc.Get(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "booking detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": b})
}

// GET /v1/bookings/code/:code
func (h *Controller) ByCode(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid code"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	b, err := h.Svc.GetByCode(c.Request().Context(), uid, code)
	if err != nil {
		return h.fail(c, "booking by code", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": b})
}

// GET /v1/bookings/my
func (h *Controller) My(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := h.Svc.MyBookings(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("booking list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
