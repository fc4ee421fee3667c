package overpass

import (
	"context"
	"time"

	"placetale/internal/domain"
)

// Searcher composes query building, mirror fetching and transformation into
// the single call the resolver orchestrates per category and tier.
type Searcher struct {
	client *Client
}

func NewSearcher(client *Client) *Searcher {
	return &Searcher{client: client}
}

// FetchPOIs runs one category query at one radius and returns transformed,
// scored, deduplicated POIs.
func (s *Searcher) FetchPOIs(ctx context.Context, point domain.GeoPoint, category domain.POICategory, radiusM int, timeout time.Duration) ([]domain.PointOfInterest, error) {
	query := BuildQuery(category, point, radiusM)
	elements, err := s.client.Fetch(ctx, query, timeout)
	if err != nil {
		return nil, err
	}
	return Transform(point, category, elements), nil
}
