package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"placetale/internal/domain"
)

// minCallTimeout is the floor for a single geodata call so one slow endpoint
// cannot stretch far past the global budget.
const minCallTimeout = 1 * time.Second

// POIFetcher runs one category query at one radius against the geodata
// service. Implementations handle endpoint failover internally.
type POIFetcher interface {
	FetchPOIs(ctx context.Context, point domain.GeoPoint, category domain.POICategory, radiusM int, timeout time.Duration) ([]domain.PointOfInterest, error)
}

// StrategyTier is one radius configuration in the descending-effort fallback
// sequence.
type StrategyTier struct {
	AttractionRadiusM int
	FoodRadiusM       int
}

// DefaultTiers is the fixed descending strategy list.
var DefaultTiers = []StrategyTier{
	{AttractionRadiusM: 2500, FoodRadiusM: 1000},
	{AttractionRadiusM: 1500, FoodRadiusM: 1000},
	{AttractionRadiusM: 500, FoodRadiusM: 500},
}

// ResolvePOIsUsecase turns a point into curated nearby POIs inside one
// wall-clock budget. It never raises on upstream failure; total failure
// yields an empty result carrying an error string.
type ResolvePOIsUsecase interface {
	Execute(ctx context.Context, point domain.GeoPoint, budget time.Duration) domain.ResolvedPOIs
}

type resolvePOIsUsecase struct {
	fetcher POIFetcher
	tiers   []StrategyTier
	cache   *expirable.LRU[string, domain.ResolvedPOIs]
	log     *slog.Logger
}

// NewResolvePOIsUsecase wires the resolver. cacheSize <= 0 disables caching.
func NewResolvePOIsUsecase(fetcher POIFetcher, tiers []StrategyTier, cacheSize int, cacheTTL time.Duration, log *slog.Logger) ResolvePOIsUsecase {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	var cache *expirable.LRU[string, domain.ResolvedPOIs]
	if cacheSize > 0 {
		cache = expirable.NewLRU[string, domain.ResolvedPOIs](cacheSize, nil, cacheTTL)
	}
	return &resolvePOIsUsecase{
		fetcher: fetcher,
		tiers:   tiers,
		cache:   cache,
		log:     log,
	}
}

func (u *resolvePOIsUsecase) Execute(ctx context.Context, point domain.GeoPoint, budget time.Duration) domain.ResolvedPOIs {
	cacheKey := fmt.Sprintf("%.4f|%.4f", domain.RoundCoord(point.Lat), domain.RoundCoord(point.Lon))
	if u.cache != nil {
		if cached, ok := u.cache.Get(cacheKey); ok {
			u.log.Debug("resolver cache hit", slog.String("key", cacheKey))
			return cached
		}
	}

	start := time.Now()

	// Best-so-far accumulators tracked independently per category; each is
	// replaced only by a strictly larger result so an earlier tier's catch is
	// never discarded for a worse later one.
	var bestAttractions, bestFood []domain.PointOfInterest
	var lastErr error
	budgetExceeded := false

	for i, tier := range u.tiers {
		remaining := budget - time.Since(start)
		if remaining <= 0 {
			budgetExceeded = true
			u.log.Warn("resolution budget exhausted",
				slog.Int("tiers_tried", i),
				slog.Duration("budget", budget))
			break
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		callTimeout := remaining
		if callTimeout < minCallTimeout {
			callTimeout = minCallTimeout
		}
		tierCtx, cancel := context.WithTimeout(ctx, callTimeout)

		attractions, food, err := u.runTier(tierCtx, point, tier, callTimeout)
		cancel()
		if err != nil {
			lastErr = err
		}

		if len(attractions) > len(bestAttractions) {
			bestAttractions = attractions
		}
		if len(food) > len(bestFood) {
			bestFood = food
		}

		// A tier succeeds when either category found something.
		if len(attractions) > 0 || len(food) > 0 {
			break
		}
	}

	result := domain.ResolvedPOIs{
		Attractions:    bestAttractions,
		Food:           bestFood,
		BudgetExceeded: budgetExceeded,
	}
	if budgetExceeded && !result.Empty() {
		result.Warning = "search budget exhausted; results may be partial"
	}
	if result.Empty() && lastErr != nil {
		result.Err = lastErr.Error()
		u.log.Warn("poi resolution failed", slog.String("error", result.Err))
		return result
	}

	if u.cache != nil && !result.Empty() {
		u.cache.Add(cacheKey, result)
	}
	return result
}

// runTier issues the attraction and food queries concurrently. One category
// failing does not abort the other; the first error seen is reported.
func (u *resolvePOIsUsecase) runTier(ctx context.Context, point domain.GeoPoint, tier StrategyTier, timeout time.Duration) ([]domain.PointOfInterest, []domain.PointOfInterest, error) {
	type categoryResult struct {
		pois []domain.PointOfInterest
		err  error
	}
	var attractions, food categoryResult

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		attractions.pois, attractions.err = u.fetcher.FetchPOIs(ctx, point, domain.CategoryAttraction, tier.AttractionRadiusM, timeout)
	}()
	go func() {
		defer wg.Done()
		food.pois, food.err = u.fetcher.FetchPOIs(ctx, point, domain.CategoryFood, tier.FoodRadiusM, timeout)
	}()
	wg.Wait()

	err := attractions.err
	if err == nil {
		err = food.err
	}
	if attractions.err != nil {
		u.log.Debug("attraction query failed", slog.String("error", attractions.err.Error()))
	}
	if food.err != nil {
		u.log.Debug("food query failed", slog.String("error", food.err.Error()))
	}

	return attractions.pois, food.pois, err
}
