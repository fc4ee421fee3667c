package domain

import (
	"fmt"
	"strings"
)

// POICategory separates the two query families the resolver runs.
type POICategory string

const (
	CategoryAttraction POICategory = "attraction"
	CategoryFood       POICategory = "food"
)

// POIBucket is the coarse narrative grouping assigned during transformation.
type POIBucket string

const (
	BucketHistory  POIBucket = "history"
	BucketCulture  POIBucket = "culture"
	BucketScenic   POIBucket = "scenic"
	BucketPark     POIBucket = "park"
	BucketLandmark POIBucket = "landmark"
	BucketFood     POIBucket = "food"
)

// FoodKind is the venue subtype used for food diversity selection.
type FoodKind string

const (
	FoodPub        FoodKind = "pub"
	FoodBar        FoodKind = "bar"
	FoodCafe       FoodKind = "cafe"
	FoodRestaurant FoodKind = "restaurant"
	FoodOther      FoodKind = "other"
)

// PointOfInterest is a named, located fact produced by the transformer.
// Instances are created once per resolution and never mutated.
type PointOfInterest struct {
	Name       string      `json:"name"`
	Category   POICategory `json:"category"`
	Lat        float64     `json:"lat"`
	Lon        float64     `json:"lon"`
	DistanceKm float64     `json:"distance_km"`
	SourceURL  string      `json:"source_url,omitempty"`
	Score      int         `json:"score"`
	Bucket     POIBucket   `json:"bucket"`
	FoodKind   FoodKind    `json:"food_kind,omitempty"`
	Hint       string      `json:"hint,omitempty"`
}

// DedupKey buckets POIs by normalized name, rounded location and category.
// At most one POI per key survives transformation.
func (p PointOfInterest) DedupKey() string {
	return fmt.Sprintf("%s|%.4f|%.4f|%s",
		strings.ToLower(strings.TrimSpace(p.Name)),
		RoundCoord(p.Lat), RoundCoord(p.Lon), p.Category)
}

// ResolvedPOIs is the outcome of one budgeted resolution call. A total
// upstream failure fills Err instead of raising; the pipeline then runs in
// no-facts mode.
type ResolvedPOIs struct {
	Attractions    []PointOfInterest
	Food           []PointOfInterest
	BudgetExceeded bool
	Warning        string
	Err            string
}

// Empty reports whether no POI at all was resolved.
func (r ResolvedPOIs) Empty() bool {
	return len(r.Attractions) == 0 && len(r.Food) == 0
}

// CuratedSelection is the bucket-diverse subset fed to the prompt builder.
// It reuses POI values from the resolved set and adds nothing.
type CuratedSelection struct {
	Attractions []PointOfInterest `json:"attractions"`
	Eateries    []PointOfInterest `json:"eateries"`
}

// AllowedNames collects the exact POI names the narrative may mention.
func (s CuratedSelection) AllowedNames() []string {
	names := make([]string, 0, len(s.Attractions)+len(s.Eateries))
	for _, p := range s.Attractions {
		names = append(names, p.Name)
	}
	for _, p := range s.Eateries {
		names = append(names, p.Name)
	}
	return names
}
