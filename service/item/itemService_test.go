package itemsvc_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"rentloop/model"
	geocoderepo "rentloop/repository/geocode"
	itemrepo "rentloop/repository/item"
	itemsvc "rentloop/service/item"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type repoMock struct {
	created *model.Item
	byIDFn  func(id int64) (*model.Item, error)
	listFn  func(f itemrepo.SearchFilter) ([]model.Item, error)
	deleted []int64
}

func (m *repoMock) Create(ctx context.Context, it *model.Item) error {
	it.ID = 42
	m.created = it
	return nil
}
func (m *repoMock) Update(ctx context.Context, it *model.Item) error { return nil }
func (m *repoMock) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}
func (m *repoMock) ByID(ctx context.Context, id int64) (*model.Item, error) { return m.byIDFn(id) }
func (m *repoMock) List(ctx context.Context, f itemrepo.SearchFilter) ([]model.Item, error) {
	return m.listFn(f)
}
func (m *repoMock) SetAvailability(ctx context.Context, id int64, available bool) error { return nil }

type resolverMock struct {
	resolveFn func(address string) (*geocoderepo.Coordinates, error)
	calls     int
}

func (m *resolverMock) Resolve(ctx context.Context, address string) (*geocoderepo.Coordinates, error) {
	m.calls++
	return m.resolveFn(address)
}

func validReq() itemsvc.CreateReq {
	lat, lng := 43.0481, -76.1474
	return itemsvc.CreateReq{
		Title:        "Cordless drill",
		Category:     model.CategoryTools,
		PricePerHour: decimal.NewFromInt(10),
		Deposit:      decimal.NewFromInt(20),
		AddressText:  "100 Crouse Dr, Syracuse, NY",
		Lat:          &lat,
		Lng:          &lng,
	}
}

func TestCreate_Validation(t *testing.T) {
	s := itemsvc.New(&repoMock{}, nil)
	ctx := context.Background()

	bad := func(mut func(r *itemsvc.CreateReq)) {
		t.Helper()
		req := validReq()
		mut(&req)
		_, err := s.Create(ctx, 1, req)
		require.Equal(t, itemsvc.ErrBadInput, itemsvc.Code(err))
	}

	bad(func(r *itemsvc.CreateReq) { r.Title = "" })
	bad(func(r *itemsvc.CreateReq) { r.AddressText = "" })
	bad(func(r *itemsvc.CreateReq) { r.Category = "spaceships" })
	bad(func(r *itemsvc.CreateReq) { r.PricePerHour = decimal.Zero })
	bad(func(r *itemsvc.CreateReq) { r.Deposit = decimal.NewFromInt(-1) })
	bad(func(r *itemsvc.CreateReq) { d := decimal.Zero; r.PricePerDay = &d })
	bad(func(r *itemsvc.CreateReq) { r.CarbonOffsetKg = -5 })
}

func TestCreate_GeocodesWhenNoCoords(t *testing.T) {
	resolver := &resolverMock{
		resolveFn: func(address string) (*geocoderepo.Coordinates, error) {
			return &geocoderepo.Coordinates{Lat: 43.05, Lng: -76.15, FormattedAddress: "100 Crouse Dr, Syracuse, NY 13210"}, nil
		},
	}
	r := &repoMock{}
	s := itemsvc.New(r, resolver)

	req := validReq()
	req.Lat, req.Lng = nil, nil
	it, err := s.Create(context.Background(), 1, req)
	require.NoError(t, err)
	require.Equal(t, 1, resolver.calls)
	require.Equal(t, 43.05, it.Lat)
	require.Equal(t, "100 Crouse Dr, Syracuse, NY 13210", it.AddressText)
}

func TestCreate_ExplicitCoordsSkipGeocoder(t *testing.T) {
	resolver := &resolverMock{
		resolveFn: func(address string) (*geocoderepo.Coordinates, error) {
			return nil, errors.New("should not be called")
		},
	}
	s := itemsvc.New(&repoMock{}, resolver)

	_, err := s.Create(context.Background(), 1, validReq())
	require.NoError(t, err)
	require.Equal(t, 0, resolver.calls)
}

func TestCreate_GeocodeFailure(t *testing.T) {
	resolver := &resolverMock{
		resolveFn: func(address string) (*geocoderepo.Coordinates, error) {
			return nil, errors.New("ZERO_RESULTS")
		},
	}
	s := itemsvc.New(&repoMock{}, resolver)

	req := validReq()
	req.Lat, req.Lng = nil, nil
	_, err := s.Create(context.Background(), 1, req)
	require.Equal(t, itemsvc.ErrNoGeocode, itemsvc.Code(err))
}

func TestDelete_OwnerOnly(t *testing.T) {
	r := &repoMock{
		byIDFn: func(id int64) (*model.Item, error) {
			return &model.Item{ID: id, OwnerID: 1}, nil
		},
	}
	s := itemsvc.New(r, nil)

	err := s.Delete(context.Background(), 2, 42)
	require.Equal(t, itemsvc.ErrNotOwner, itemsvc.Code(err))
	require.Empty(t, r.deleted)

	require.NoError(t, s.Delete(context.Background(), 1, 42))
	require.Equal(t, []int64{42}, r.deleted)
}

func TestDetail_NotFound(t *testing.T) {
	r := &repoMock{byIDFn: func(id int64) (*model.Item, error) { return nil, sql.ErrNoRows }}
	s := itemsvc.New(r, nil)

	_, err := s.Detail(context.Background(), 9)
	require.Equal(t, itemsvc.ErrNotFound, itemsvc.Code(err))
}

// Downtown Syracuse search point with listings at increasing distances.
func searchFixtures() []model.Item {
	return []model.Item{
		{ID: 1, Title: "near", Lat: 43.0500, Lng: -76.1500},
		{ID: 2, Title: "campus", Lat: 43.0392, Lng: -76.1351}, // ~1.5 km out
		{ID: 3, Title: "rochester", Lat: 43.1566, Lng: -77.6088}, // ~120 km out
	}
}

func TestSearch_RadiusAndOrder(t *testing.T) {
	r := &repoMock{listFn: func(f itemrepo.SearchFilter) ([]model.Item, error) {
		require.True(t, f.AvailableOnly)
		return searchFixtures(), nil
	}}
	s := itemsvc.New(r, nil)

	page, err := s.Search(context.Background(), itemsvc.SearchReq{Lat: 43.0500, Lng: -76.1500})
	require.NoError(t, err)

	// default 50 km radius keeps the two local listings, drops Rochester
	require.Equal(t, 2, page.Count)
	require.Equal(t, int64(1), page.Results[0].ID, "nearest first")
	require.Equal(t, int64(2), page.Results[1].ID)
	require.Equal(t, 0.0, page.Results[0].DistanceKM)
	require.Greater(t, page.Results[1].DistanceKM, 0.0)
}

func TestSearch_TightRadius(t *testing.T) {
	r := &repoMock{listFn: func(f itemrepo.SearchFilter) ([]model.Item, error) {
		return searchFixtures(), nil
	}}
	s := itemsvc.New(r, nil)

	page, err := s.Search(context.Background(), itemsvc.SearchReq{
		Lat: 43.0500, Lng: -76.1500, RadiusKM: 1.0,
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	require.Equal(t, int64(1), page.Results[0].ID)
}

func TestSearch_Pagination(t *testing.T) {
	r := &repoMock{listFn: func(f itemrepo.SearchFilter) ([]model.Item, error) {
		return searchFixtures(), nil
	}}
	s := itemsvc.New(r, nil)

	page, err := s.Search(context.Background(), itemsvc.SearchReq{
		Lat: 43.0500, Lng: -76.1500, Page: 2, PageSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 2, page.Count, "count is the full match count")
	require.Len(t, page.Results, 1)
	require.Equal(t, int64(2), page.Results[0].ID)

	// page past the end is empty, not an error
	page, err = s.Search(context.Background(), itemsvc.SearchReq{
		Lat: 43.0500, Lng: -76.1500, Page: 9, PageSize: 10,
	})
	require.NoError(t, err)
	require.Empty(t, page.Results)
}
