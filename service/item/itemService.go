package itemsvc

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"rentloop/model"
	geocoderepo "rentloop/repository/geocode"
	itemrepo "rentloop/repository/item"
	"rentloop/util/geo"

	"github.com/shopspring/decimal"
)

type ErrCode string

const (
	ErrBadInput  ErrCode = "BAD_INPUT"
	ErrNotFound  ErrCode = "NOT_FOUND"
	ErrNotOwner  ErrCode = "NOT_OWNER"
	ErrNoGeocode ErrCode = "GEOCODE_FAILED"
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

// DefaultSearchRadiusKM is the server-side radius when the caller does
// not pass one. Kept at 50 (not the 5 some clients assume); pass radius
// explicitly to narrow.
const DefaultSearchRadiusKM = 50.0

type Repo interface {
	Create(ctx context.Context, it *model.Item) error
	Update(ctx context.Context, it *model.Item) error
	Delete(ctx context.Context, id int64) error
	ByID(ctx context.Context, id int64) (*model.Item, error)
	List(ctx context.Context, f itemrepo.SearchFilter) ([]model.Item, error)
	SetAvailability(ctx context.Context, id int64, available bool) error
}

type CreateReq struct {
	Title          string
	Description    string
	Category       model.Category
	PricePerHour   decimal.Decimal
	PricePerDay    *decimal.Decimal
	Deposit        decimal.Decimal
	AddressText    string
	Lat            *float64
	Lng            *float64
	PhotoURL       string
	CarbonOffsetKg int64
}

type SearchReq struct {
	Lat      float64
	Lng      float64
	RadiusKM float64
	Category model.Category
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	PageSize int
}

// SearchResult is an item plus its distance from the search point.
type SearchResult struct {
	model.Item
	DistanceKM float64 `json:"distance_km"`
}

type SearchPage struct {
	Count   int            `json:"count"`
	Page    int            `json:"page"`
	Results []SearchResult `json:"results"`
}

type Service interface {
	Create(ctx context.Context, ownerID int64, req CreateReq) (*model.Item, error)
	Update(ctx context.Context, ownerID, itemID int64, req CreateReq) (*model.Item, error)
	Delete(ctx context.Context, ownerID, itemID int64) error
	SetAvailability(ctx context.Context, ownerID, itemID int64, available bool) error
	Detail(ctx context.Context, id int64) (*model.Item, error)
	Search(ctx context.Context, req SearchReq) (*SearchPage, error)
}

type service struct {
	r        Repo
	resolver geocoderepo.AddressResolver
}

func New(r Repo, resolver geocoderepo.AddressResolver) Service {
	return &service{r: r, resolver: resolver}
}

func (s *service) validate(req CreateReq) error {
	if req.Title == "" || req.AddressText == "" {
		return makeErr(ErrBadInput)
	}
	if !req.Category.Valid() {
		return makeErr(ErrBadInput)
	}
	if req.PricePerHour.Sign() <= 0 || req.Deposit.Sign() < 0 {
		return makeErr(ErrBadInput)
	}
	if req.PricePerDay != nil && req.PricePerDay.Sign() <= 0 {
		return makeErr(ErrBadInput)
	}
	if req.CarbonOffsetKg < 0 {
		return makeErr(ErrBadInput)
	}
	return nil
}

func (s *service) materialize(ctx context.Context, req CreateReq, it *model.Item) error {
	it.Title = req.Title
	it.Description = req.Description
	it.Category = req.Category
	it.PricePerHour = req.PricePerHour
	it.PricePerDay = req.PricePerDay
	it.Deposit = req.Deposit
	it.AddressText = req.AddressText
	it.PhotoURL = req.PhotoURL
	it.CarbonOffsetKg = req.CarbonOffsetKg

	if req.Lat != nil && req.Lng != nil {
		it.Lat, it.Lng = *req.Lat, *req.Lng
		return nil
	}
	if s.resolver == nil {
		return makeErr(ErrNoGeocode)
	}
	coords, err := s.resolver.Resolve(ctx, req.AddressText)
	if err != nil {
		return makeErr(ErrNoGeocode)
	}
	it.Lat, it.Lng = coords.Lat, coords.Lng
	if coords.FormattedAddress != "" {
		it.AddressText = coords.FormattedAddress
	}
	return nil
}

func (s *service) Create(ctx context.Context, ownerID int64, req CreateReq) (*model.Item, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	it := &model.Item{OwnerID: ownerID, IsAvailable: true, RatingAvg: 5.0}
	if err := s.materialize(ctx, req, it); err != nil {
		return nil, err
	}
	if err := s.r.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *service) Update(ctx context.Context, ownerID, itemID int64, req CreateReq) (*model.Item, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	it, err := s.owned(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.materialize(ctx, req, it); err != nil {
		return nil, err
	}
	if err := s.r.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *service) Delete(ctx context.Context, ownerID, itemID int64) error {
	if _, err := s.owned(ctx, ownerID, itemID); err != nil {
		return err
	}
	return s.r.Delete(ctx, itemID)
}

func (s *service) SetAvailability(ctx context.Context, ownerID, itemID int64, available bool) error {
	if _, err := s.owned(ctx, ownerID, itemID); err != nil {
		return err
	}
	return s.r.SetAvailability(ctx, itemID, available)
}

func (s *service) owned(ctx context.Context, ownerID, itemID int64) (*model.Item, error) {
	it, err := s.r.ByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if it.OwnerID != ownerID {
		return nil, makeErr(ErrNotOwner)
	}
	return it, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Item, error) {
	it, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return it, nil
}

// Search filters candidates in SQL, computes haversine distance per
// candidate, drops anything beyond the radius, sorts ascending by
// distance and paginates in memory.
func (s *service) Search(ctx context.Context, req SearchReq) (*SearchPage, error) {
	radius := req.RadiusKM
	if radius <= 0 {
		radius = DefaultSearchRadiusKM
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	candidates, err := s.r.List(ctx, itemrepo.SearchFilter{
		Category:      req.Category,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		AvailableOnly: true,
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, it := range candidates {
		d := geo.Haversine(req.Lat, req.Lng, it.Lat, it.Lng)
		if d <= radius {
			results = append(results, SearchResult{Item: it, DistanceKM: d})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DistanceKM < results[j].DistanceKM })

	total := len(results)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &SearchPage{Count: total, Page: page, Results: results[start:end]}, nil
}
