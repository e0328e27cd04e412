package bundlesvc

import (
	"context"
	"database/sql"
	"errors"

	"rentloop/model"
	"rentloop/util/database"

	"github.com/shopspring/decimal"
)

type ErrCode string

const (
	ErrBadInput    ErrCode = "BAD_INPUT"
	ErrNotFound    ErrCode = "NOT_FOUND"
	ErrEmptyBundle ErrCode = "EMPTY_BUNDLE"
	ErrBadDiscount ErrCode = "BAD_DISCOUNT"
	ErrNotOwnItem  ErrCode = "NOT_OWN_ITEM"
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

const (
	minDiscountPercent = 5
	maxDiscountPercent = 50
)

type Repo interface {
	Create(ctx context.Context, tx *sql.Tx, b *model.Bundle) error
	ByID(ctx context.Context, id int64) (*model.Bundle, error)
	List(ctx context.Context, activeOnly bool) ([]model.Bundle, error)
}

type ItemRepo interface {
	ByID(ctx context.Context, id int64) (*model.Item, error)
}

type CreateReq struct {
	Name            string
	Description     string
	DiscountPercent int
	Items           []model.BundleItem
}

type Service interface {
	Create(ctx context.Context, creatorID int64, req CreateReq) (*model.Bundle, error)
	Detail(ctx context.Context, id int64) (*model.Bundle, error)
	List(ctx context.Context) ([]model.Bundle, error)

	// QuotePrice computes the discounted bundle price for a window length.
	QuotePrice(ctx context.Context, bundleID int64, hours decimal.Decimal) (decimal.Decimal, error)
}

type service struct {
	txr   database.TxRunner
	r     Repo
	items ItemRepo
}

func New(txr database.TxRunner, r Repo, items ItemRepo) Service {
	return &service{txr: txr, r: r, items: items}
}

func (s *service) Create(ctx context.Context, creatorID int64, req CreateReq) (*model.Bundle, error) {
	if req.Name == "" {
		return nil, makeErr(ErrBadInput)
	}
	if req.DiscountPercent < minDiscountPercent || req.DiscountPercent > maxDiscountPercent {
		return nil, makeErr(ErrBadDiscount)
	}
	if len(req.Items) == 0 {
		return nil, makeErr(ErrEmptyBundle)
	}
	seen := map[int64]bool{}
	for _, bi := range req.Items {
		if bi.Quantity < 1 || seen[bi.ItemID] {
			return nil, makeErr(ErrBadInput)
		}
		seen[bi.ItemID] = true
		it, err := s.items.ByID(ctx, bi.ItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, makeErr(ErrNotFound)
			}
			return nil, err
		}
		if it.OwnerID != creatorID {
			return nil, makeErr(ErrNotOwnItem)
		}
	}

	b := &model.Bundle{
		CreatorID:       creatorID,
		Name:            req.Name,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		IsActive:        true,
		Items:           req.Items,
	}
	err := s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		return s.r.Create(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Bundle, error) {
	b, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context) ([]model.Bundle, error) {
	return s.r.List(ctx, true)
}

func (s *service) QuotePrice(ctx context.Context, bundleID int64, hours decimal.Decimal) (decimal.Decimal, error) {
	b, err := s.Detail(ctx, bundleID)
	if err != nil {
		return decimal.Zero, err
	}
	hourlySum := decimal.Zero
	for _, bi := range b.Items {
		it, err := s.items.ByID(ctx, bi.ItemID)
		if err != nil {
			return decimal.Zero, err
		}
		hourlySum = hourlySum.Add(it.PricePerHour.Mul(decimal.NewFromInt(int64(bi.Quantity))))
	}
	gross := hourlySum.Mul(hours)
	discount := gross.Mul(decimal.NewFromInt(int64(b.DiscountPercent))).Div(decimal.NewFromInt(100))
	return gross.Sub(discount).Round(2), nil
}
