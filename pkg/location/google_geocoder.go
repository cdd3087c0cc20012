package location

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// GoogleGeocoder resolves place queries with the Google Maps Geocoding API.
type GoogleGeocoder struct {
	client     *maps.Client
	region     string
	maxResults int
}

// NewGoogleGeocoder creates a GoogleGeocoder. region biases results towards a
// ccTLD region code and may be empty.
func NewGoogleGeocoder(apiKey, region string, maxResults int) (*GoogleGeocoder, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &GoogleGeocoder{client: c, region: region, maxResults: maxResults}, nil
}

// Search returns at most maxResults places matching query.
func (g *GoogleGeocoder) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: query,
		Region:  g.region,
	})
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		if len(places) == g.maxResults {
			break
		}
		places = append(places, Place{
			Name:      r.FormattedAddress,
			PlaceID:   r.PlaceID,
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		})
	}
	return places, nil
}
