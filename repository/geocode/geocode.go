package geocoderepo

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

var ErrNoResult = errors.New("no geocoding result for address")

type Coordinates struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	PlaceID          string  `json:"place_id,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
}

// AddressResolver turns free-text addresses into coordinates. It is an
// injected collaborator, not a process-wide singleton.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (*Coordinates, error)
}

type googleResolver struct {
	client *maps.Client
}

func NewGoogle(apiKey string) (AddressResolver, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &googleResolver{client: c}, nil
}

func (g *googleResolver) Resolve(ctx context.Context, address string) (*Coordinates, error) {
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(resp) == 0 {
		return nil, ErrNoResult
	}
	first := resp[0]
	return &Coordinates{
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		PlaceID:          first.PlaceID,
		FormattedAddress: first.FormattedAddress,
	}, nil
}
