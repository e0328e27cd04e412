package reviewsvc

import (
	"context"
	"database/sql"
	"errors"

	"rentloop/model"
	reviewrepo "rentloop/repository/review"
	"rentloop/util/database"
)

type ErrCode string

const (
	ErrDuplicateReview     ErrCode = "DUPLICATE_REVIEW"
	ErrBookingNotCompleted ErrCode = "BOOKING_NOT_COMPLETED"
	ErrNotParticipant      ErrCode = "NOT_PARTICIPANT"
	ErrBadStars            ErrCode = "BAD_STARS"
	ErrNotFound            ErrCode = "NOT_FOUND"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type BookingRepo interface {
	ByID(ctx context.Context, id int64) (*model.Booking, error)
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, rv *model.Review) error
	ListForItem(ctx context.Context, itemID int64) ([]model.Review, error)
	ListForUser(ctx context.Context, revieweeID int64) ([]model.Review, error)
}

type RatingTarget interface {
	RatingForUpdate(ctx context.Context, tx *sql.Tx, id int64) (avg float64, count int64, err error)
	UpdateRating(ctx context.Context, tx *sql.Tx, id int64, avg float64, count int64) error
}

// ItemDirectory resolves the counterparty of an item booking on top
// of the item's rating columns.
type ItemDirectory interface {
	RatingTarget
	ByID(ctx context.Context, id int64) (*model.Item, error)
}

type BundleRepo interface {
	ByID(ctx context.Context, id int64) (*model.Bundle, error)
}

type CreateReq struct {
	BookingID  int64
	RevieweeID int64
	ItemID     *int64
	Stars      int
	Text       string
	PhotoURLs  []string
	VideoURL   string
}

type Service interface {
	Record(ctx context.Context, reviewerID int64, req CreateReq) (*model.Review, error)
	ForItem(ctx context.Context, itemID int64) ([]model.Review, error)
	ForUser(ctx context.Context, revieweeID int64) ([]model.Review, error)
}

type service struct {
	txr      database.TxRunner
	r        Repo
	bookings BookingRepo
	items    ItemDirectory
	bundles  BundleRepo
	users    RatingTarget
}

func New(txr database.TxRunner, r Repo, bookings BookingRepo, items ItemDirectory, bundles BundleRepo, users RatingTarget) Service {
	return &service{txr: txr, r: r, bookings: bookings, items: items, bundles: bundles, users: users}
}

// counterparty resolves the non-renter side of a booking: the item
// owner or the bundle creator.
func (s *service) counterparty(ctx context.Context, b *model.Booking) (int64, error) {
	switch b.Target.Kind {
	case model.TargetItem:
		it, err := s.items.ByID(ctx, b.Target.ID)
		if err != nil {
			return 0, err
		}
		return it.OwnerID, nil
	case model.TargetBundle:
		bu, err := s.bundles.ByID(ctx, b.Target.ID)
		if err != nil {
			return 0, err
		}
		return bu.CreatorID, nil
	}
	return 0, makeErr(ErrNotFound)
}

// bookingCoversItem reports whether the booking rented the given item,
// directly or as a bundle constituent.
func bookingCoversItem(b *model.Booking, itemID int64) bool {
	if b.Target.Kind == model.TargetItem {
		return b.Target.ID == itemID
	}
	for _, bi := range b.Items {
		if bi.ItemID == itemID {
			return true
		}
	}
	return false
}

// RollAverage folds one new rating into a running average.
func RollAverage(oldAvg float64, oldCount int64, stars int) (newAvg float64, newCount int64) {
	newCount = oldCount + 1
	newAvg = (oldAvg*float64(oldCount) + float64(stars)) / float64(newCount)
	return newAvg, newCount
}

func (s *service) Record(ctx context.Context, reviewerID int64, req CreateReq) (*model.Review, error) {
	if req.Stars < 1 || req.Stars > 5 {
		return nil, makeErr(ErrBadStars)
	}

	b, err := s.bookings.ByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if b.Status != model.BookingCompleted {
		return nil, makeErr(ErrBookingNotCompleted)
	}
	ownerID, err := s.counterparty(ctx, b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	// A review runs between the two booking parties only, and only
	// from one to the other. Renter reviews owner or owner reviews
	// renter; strangers and self-reviews are rejected.
	switch {
	case reviewerID == b.RenterID && req.RevieweeID == ownerID:
	case reviewerID == ownerID && req.RevieweeID == b.RenterID:
	default:
		return nil, makeErr(ErrNotParticipant)
	}
	if req.ItemID != nil && !bookingCoversItem(b, *req.ItemID) {
		return nil, makeErr(ErrNotFound)
	}

	rv := &model.Review{
		BookingID:  req.BookingID,
		ReviewerID: reviewerID,
		RevieweeID: req.RevieweeID,
		ItemID:     req.ItemID,
		Stars:      req.Stars,
		Text:       req.Text,
		PhotoURLs:  req.PhotoURLs,
		VideoURL:   req.VideoURL,
		IsVerified: true,
	}

	err = s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.r.Insert(ctx, tx, rv); err != nil {
			if errors.Is(err, reviewrepo.ErrDuplicate) {
				return makeErr(ErrDuplicateReview)
			}
			return err
		}

		if rv.ItemID != nil {
			avg, count, err := s.items.RatingForUpdate(ctx, tx, *rv.ItemID)
			if err != nil {
				return err
			}
			newAvg, newCount := RollAverage(avg, count, rv.Stars)
			if err := s.items.UpdateRating(ctx, tx, *rv.ItemID, newAvg, newCount); err != nil {
				return err
			}
		}

		avg, count, err := s.users.RatingForUpdate(ctx, tx, rv.RevieweeID)
		if err != nil {
			return err
		}
		newAvg, newCount := RollAverage(avg, count, rv.Stars)
		return s.users.UpdateRating(ctx, tx, rv.RevieweeID, newAvg, newCount)
	})
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *service) ForItem(ctx context.Context, itemID int64) ([]model.Review, error) {
	return s.r.ListForItem(ctx, itemID)
}

func (s *service) ForUser(ctx context.Context, revieweeID int64) ([]model.Review, error) {
	return s.r.ListForUser(ctx, revieweeID)
}
