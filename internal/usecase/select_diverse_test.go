package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placetale/internal/domain"
	"placetale/internal/usecase"
)

func attraction(name string, score int, bucket domain.POIBucket) domain.PointOfInterest {
	return domain.PointOfInterest{
		Name:     name,
		Category: domain.CategoryAttraction,
		Score:    score,
		Bucket:   bucket,
	}
}

func eatery(name string, score int, kind domain.FoodKind) domain.PointOfInterest {
	return domain.PointOfInterest{
		Name:     name,
		Category: domain.CategoryFood,
		Score:    score,
		Bucket:   domain.BucketFood,
		FoodKind: kind,
	}
}

func TestSelectAttractions_BucketCoverage(t *testing.T) {
	// Score-sorted input: three museums outscore everything, but the
	// selection must span buckets before repeating one.
	pois := []domain.PointOfInterest{
		attraction("Museum A", 15, domain.BucketCulture),
		attraction("Museum B", 14, domain.BucketCulture),
		attraction("Museum C", 13, domain.BucketCulture),
		attraction("Old Fort", 9, domain.BucketHistory),
		attraction("Cliff View", 7, domain.BucketScenic),
	}

	picked := usecase.SelectAttractions(pois, 3)
	require.Len(t, picked, 3)

	buckets := map[domain.POIBucket]bool{}
	for _, p := range picked {
		buckets[p.Bucket] = true
	}
	assert.True(t, buckets[domain.BucketHistory])
	assert.True(t, buckets[domain.BucketCulture])
	assert.True(t, buckets[domain.BucketScenic])
}

func TestSelectAttractions_BackfillAfterBucketsExhausted(t *testing.T) {
	pois := []domain.PointOfInterest{
		attraction("Museum A", 15, domain.BucketCulture),
		attraction("Museum B", 14, domain.BucketCulture),
		attraction("Museum C", 13, domain.BucketCulture),
	}

	picked := usecase.SelectAttractions(pois, 3)
	require.Len(t, picked, 3)
	assert.Equal(t, "Museum A", picked[0].Name)
	assert.Equal(t, "Museum B", picked[1].Name)
	assert.Equal(t, "Museum C", picked[2].Name)
}

func TestSelectAttractions_NoDuplicateNames(t *testing.T) {
	pois := []domain.PointOfInterest{
		attraction("The Lookout", 10, domain.BucketScenic),
		attraction("The Lookout", 8, domain.BucketLandmark),
		attraction("Quay House", 6, domain.BucketHistory),
	}

	picked := usecase.SelectAttractions(pois, 3)
	names := map[string]int{}
	for _, p := range picked {
		names[p.Name]++
	}
	for name, count := range names {
		assert.Equal(t, 1, count, "duplicate name selected: %s", name)
	}
}

func TestSelectFood_KindCoverage(t *testing.T) {
	pois := []domain.PointOfInterest{
		eatery("Ship Inn", 8, domain.FoodPub),
		eatery("Anchor Tavern", 7, domain.FoodPub),
		eatery("Quay Cafe", 6, domain.FoodCafe),
		eatery("Harbour Restaurant", 5, domain.FoodRestaurant),
	}

	picked := usecase.SelectFood(pois, 3)
	require.Len(t, picked, 3)

	kinds := map[domain.FoodKind]bool{}
	for _, p := range picked {
		kinds[p.FoodKind] = true
	}
	assert.True(t, kinds[domain.FoodPub])
	assert.True(t, kinds[domain.FoodCafe])
	assert.True(t, kinds[domain.FoodRestaurant])
	// The second pub loses to kind coverage at n=3.
	for _, p := range picked {
		assert.NotEqual(t, "Anchor Tavern", p.Name)
	}
}

func TestSelect_EmptyAndZero(t *testing.T) {
	assert.Empty(t, usecase.SelectAttractions(nil, 3))
	assert.Empty(t, usecase.SelectFood([]domain.PointOfInterest{eatery("X", 1, domain.FoodPub)}, 0))
}

// The Cornish fishing village scenario: bucket-diverse attractions in score
// order within bucket priority, and food kinds covered before a kind repeats.
func TestSelect_EndToEndScenario(t *testing.T) {
	attractions := []domain.PointOfInterest{
		attraction("Old Quay", 12, domain.BucketHistory),
		attraction("Mount View", 9, domain.BucketScenic),
		attraction("Penlee House", 7, domain.BucketCulture),
	}
	food := []domain.PointOfInterest{
		eatery("Ship Inn", 8, domain.FoodPub),
		eatery("Quay Cafe", 6, domain.FoodCafe),
		eatery("Harbour Restaurant", 5, domain.FoodRestaurant),
		eatery("Anchor Tavern", 4, domain.FoodPub),
	}

	pickedAttractions := usecase.SelectAttractions(attractions, 3)
	require.Len(t, pickedAttractions, 3)
	// Bucket priority order: history, culture, scenic.
	assert.Equal(t, "Old Quay", pickedAttractions[0].Name)
	assert.Equal(t, "Penlee House", pickedAttractions[1].Name)
	assert.Equal(t, "Mount View", pickedAttractions[2].Name)

	pickedFood := usecase.SelectFood(food, 4)
	require.Len(t, pickedFood, 4)
	assert.Equal(t, "Anchor Tavern", pickedFood[3].Name, "the second pub comes after kind coverage")
}
