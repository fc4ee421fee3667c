package domain

import "context"

// Geocoder resolves a coordinate to a human-readable location label. The
// label-formatting heuristics live with the implementation; the pipeline
// treats the result as opaque text and falls back to "lat, lon" on failure.
type Geocoder interface {
	ReverseLabel(ctx context.Context, point GeoPoint) (string, error)
}
