package overpass

import (
	"sort"
	"strings"

	"placetale/internal/domain"
)

// lowSignalNames are generic attraction names with no narrative value. They
// are filtered before scoring so common leisure tags cannot crowd out real
// sights.
var lowSignalNames = map[string]struct{}{
	"park":              {},
	"playground":        {},
	"playing field":     {},
	"playing fields":    {},
	"recreation ground": {},
}

// Transform converts raw Overpass elements into scored, bucketed, deduplicated
// POIs sorted by descending score then ascending distance. Pure and
// deterministic: identical input yields identical, identically ordered output.
func Transform(point domain.GeoPoint, category domain.POICategory, elements []Element) []domain.PointOfInterest {
	seen := make(map[string]struct{}, len(elements))
	pois := make([]domain.PointOfInterest, 0, len(elements))

	for _, el := range elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}

		lat, lon := el.Lat, el.Lon
		if el.Center != nil {
			lat, lon = el.Center.Lat, el.Center.Lon
		}
		if lat == 0 && lon == 0 {
			continue
		}

		if category == domain.CategoryAttraction {
			if _, low := lowSignalNames[strings.ToLower(name)]; low {
				continue
			}
		}

		poi := domain.PointOfInterest{
			Name:       name,
			Category:   category,
			Lat:        lat,
			Lon:        lon,
			DistanceKm: point.DistanceKm(domain.GeoPoint{Lat: lat, Lon: lon}),
			SourceURL:  sourceURL(el.Tags),
		}

		switch category {
		case domain.CategoryFood:
			poi.FoodKind = foodKind(el.Tags)
			poi.Bucket = domain.BucketFood
			poi.Score = scoreFood(el.Tags, poi.FoodKind)
			poi.Hint = el.Tags["amenity"]
		default:
			poi.Bucket = bucket(el.Tags)
			poi.Score = scoreAttraction(el.Tags)
			poi.Hint = attractionHint(el.Tags)
		}

		key := poi.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pois = append(pois, poi)
	}

	sort.SliceStable(pois, func(i, j int) bool {
		if pois[i].Score != pois[j].Score {
			return pois[i].Score > pois[j].Score
		}
		return pois[i].DistanceKm < pois[j].DistanceKm
	})

	return pois
}

func hasEncyclopediaRef(tags map[string]string) bool {
	return tags["wikipedia"] != "" || tags["wikidata"] != ""
}

func scoreAttraction(tags map[string]string) int {
	score := 0
	if hasEncyclopediaRef(tags) {
		score += 6
	}
	if tags["website"] != "" {
		score += 3
	}

	switch tags["tourism"] {
	case "museum", "gallery":
		score += 6
	case "attraction":
		score += 4
	case "viewpoint":
		score += 5
	case "":
	default:
		score += 4
	}

	switch tags["historic"] {
	case "castle", "ruins":
		score += 7
	case "":
	default:
		score += 5
	}

	// Plain parks score nothing unless an encyclopedia reference vouches for
	// them; otherwise the tag is too common to be narratively useful.
	if tags["leisure"] == "park" && !hasEncyclopediaRef(tags) {
		score = 0
	}

	return score
}

func scoreFood(tags map[string]string, kind domain.FoodKind) int {
	var score int
	switch kind {
	case domain.FoodPub:
		score = 5
	case domain.FoodBar:
		score = 4
	case domain.FoodCafe:
		score = 4
	case domain.FoodRestaurant:
		score = 3
	default:
		score = 1
	}
	if tags["website"] != "" {
		score += 2
	}
	if hasEncyclopediaRef(tags) {
		score += 3
	}
	return score
}

func foodKind(tags map[string]string) domain.FoodKind {
	switch tags["amenity"] {
	case "pub":
		return domain.FoodPub
	case "bar":
		return domain.FoodBar
	case "cafe":
		return domain.FoodCafe
	case "restaurant":
		return domain.FoodRestaurant
	default:
		return domain.FoodOther
	}
}

// bucket assigns the coarse narrative grouping with a fixed tag priority:
// historic > tourism subtype > man-made structure > natural feature >
// leisure area > landmark.
func bucket(tags map[string]string) domain.POIBucket {
	if tags["historic"] != "" {
		return domain.BucketHistory
	}
	switch tags["tourism"] {
	case "museum", "gallery", "artwork", "theatre":
		return domain.BucketCulture
	case "viewpoint":
		return domain.BucketScenic
	case "attraction":
		return domain.BucketLandmark
	}
	if tags["man_made"] != "" {
		return domain.BucketLandmark
	}
	if tags["natural"] != "" {
		return domain.BucketScenic
	}
	if tags["leisure"] != "" {
		return domain.BucketPark
	}
	return domain.BucketLandmark
}

func attractionHint(tags map[string]string) string {
	if tags["historic"] != "" {
		return tags["historic"]
	}
	if tags["tourism"] != "" {
		return tags["tourism"]
	}
	return ""
}

func sourceURL(tags map[string]string) string {
	if site := tags["website"]; site != "" {
		return site
	}
	if wp := tags["wikipedia"]; wp != "" {
		// Tag format is "lang:Article Title".
		if lang, title, ok := strings.Cut(wp, ":"); ok {
			return "https://" + lang + ".wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")
		}
	}
	return ""
}
