package review

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentloop/app/echoServer/jwtx"
	reviewsvc "rentloop/service/review"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc reviewsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CreateReviewReq struct {
	BookingID  int64    `json:"booking_id" validate:"required,gt=0"`
	RevieweeID int64    `json:"reviewee_id" validate:"required,gt=0"`
	ItemID     *int64   `json:"item_id,omitempty"`
	Stars      int      `json:"stars" validate:"required,gte=1,lte=5"`
	Text       string   `json:"text"`
	PhotoURLs  []string `json:"photo_urls,omitempty"`
	VideoURL   string   `json:"video_url,omitempty"`
}

// POST /v1/reviews
// @Summary  Leave a review for a completed booking
// @Tags     reviews
// @Accept   json
// @Produce  json
// @Param    payload  body  CreateReviewReq  true  "Review payload"
// @Success  201  {object}  map[string]any
// @Failure  409  {object}  map[string]any "already reviewed"
// @Router   /v1/reviews [post]
func (h *Controller) Create(c echo.Context) error {
	var req CreateReviewReq
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

	rv, err := h.Svc.Record(c.Request().Context(), uid, reviewsvc.CreateReq{
		BookingID:  req.BookingID,
		RevieweeID: req.RevieweeID,
		ItemID:     req.ItemID,
		Stars:      req.Stars,
		Text:       req.Text,
		PhotoURLs:  req.PhotoURLs,
		VideoURL:   req.VideoURL,
	})
	if err != nil {
		switch reviewsvc.Code(err) {
		case reviewsvc.ErrDuplicateReview:
			return c.JSON(http.StatusConflict, echo.Map{"message": "you already reviewed this booking"})
		case reviewsvc.ErrBookingNotCompleted:
			return c.JSON(http.StatusConflict, echo.Map{"message": "booking is not completed"})
		case reviewsvc.ErrNotParticipant:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case reviewsvc.ErrBadStars:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "stars must be 1 to 5"})
		case reviewsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "booking not found"})
		default:
			h.Log.Error("review create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "review recorded", "data": rv})
}

// GET /v1/items/:id/reviews
func (h *Controller) ForItem(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.ForItem(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("reviews for item", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/users/:id/reviews
func (h *Controller) ForUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.ForUser(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("reviews for user", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
