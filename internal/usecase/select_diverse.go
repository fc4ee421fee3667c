package usecase

import (
	"strings"

	"placetale/internal/domain"
)

// attractionBucketPriority fixes the order buckets are visited so prompts
// span topics instead of stacking three of a kind.
var attractionBucketPriority = []domain.POIBucket{
	domain.BucketHistory,
	domain.BucketCulture,
	domain.BucketScenic,
	domain.BucketLandmark,
	domain.BucketPark,
}

var foodKindPriority = []domain.FoodKind{
	domain.FoodPub,
	domain.FoodRestaurant,
	domain.FoodCafe,
	domain.FoodBar,
}

// SelectAttractions picks up to n attractions, one best-scoring POI per
// bucket in priority order, then backfills from the overall score order.
// Input is assumed sorted by score desc, distance asc (transformer output).
func SelectAttractions(pois []domain.PointOfInterest, n int) []domain.PointOfInterest {
	return selectDiverse(pois, n, func(p domain.PointOfInterest) string {
		return string(p.Bucket)
	}, bucketKeys(attractionBucketPriority))
}

// SelectFood picks up to n food venues spanning venue kinds before repeating
// any kind.
func SelectFood(pois []domain.PointOfInterest, n int) []domain.PointOfInterest {
	return selectDiverse(pois, n, func(p domain.PointOfInterest) string {
		return string(p.FoodKind)
	}, foodKeys(foodKindPriority))
}

func selectDiverse(pois []domain.PointOfInterest, n int, groupOf func(domain.PointOfInterest) string, priority []string) []domain.PointOfInterest {
	if n <= 0 || len(pois) == 0 {
		return nil
	}

	picked := make([]domain.PointOfInterest, 0, n)
	pickedNames := make(map[string]struct{}, n)

	take := func(p domain.PointOfInterest) {
		picked = append(picked, p)
		pickedNames[strings.ToLower(p.Name)] = struct{}{}
	}

	// One best-scoring candidate per group, in priority order.
	for _, group := range priority {
		if len(picked) >= n {
			return picked
		}
		for _, p := range pois {
			if groupOf(p) != group {
				continue
			}
			if _, dup := pickedNames[strings.ToLower(p.Name)]; dup {
				continue
			}
			take(p)
			break
		}
	}

	// Backfill remaining slots from the overall score order.
	for _, p := range pois {
		if len(picked) >= n {
			break
		}
		if _, dup := pickedNames[strings.ToLower(p.Name)]; dup {
			continue
		}
		take(p)
	}

	return picked
}

func bucketKeys(buckets []domain.POIBucket) []string {
	keys := make([]string, len(buckets))
	for i, b := range buckets {
		keys[i] = string(b)
	}
	return keys
}

func foodKeys(kinds []domain.FoodKind) []string {
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = string(k)
	}
	return keys
}
