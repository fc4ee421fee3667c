package di

import (
	"log/slog"
	"time"

	"placetale/internal/adapter/geocode"
	"placetale/internal/adapter/llm"
	"placetale/internal/adapter/narrate_http"
	"placetale/internal/adapter/overpass"
	"placetale/internal/infra/config"
	"placetale/internal/infra/httpclient"
	"placetale/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	ResolveUsecase usecase.ResolvePOIsUsecase
	NarrateUsecase usecase.NarrateUsecase
	Handler        *narrate_http.Handler
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(cfg *config.Config, log *slog.Logger) *ApplicationComponents {
	// Shared HTTP clients with connection pooling. Per-call contexts bound
	// each overpass mirror call; the client timeout is only a hard ceiling.
	overpassHTTP := httpclient.NewPooledClient(time.Duration(cfg.OverpassTimeoutS) * time.Second)
	llmHTTP := httpclient.NewPooledClient(time.Duration(cfg.GenerateTimeoutS) * time.Second)
	geocodeHTTP := httpclient.NewPooledClient(time.Duration(cfg.GeocoderTimeoutS) * time.Second)

	// External clients
	overpassClient := overpass.NewClient(cfg.OverpassEndpoints, overpassHTTP, log)
	searcher := overpass.NewSearcher(overpassClient)
	generator := llm.NewOllamaGenerator(cfg.LLMURL, cfg.LLMToken, cfg.LLMModel, llm.SamplingOptions{
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		NumCtx:        cfg.NumCtx,
		RepeatPenalty: cfg.RepeatPenalty,
	}, llmHTTP)
	geocoder := geocode.NewNominatimClient(cfg.GeocoderURL, geocodeHTTP)

	// Usecases
	resolveUsecase := usecase.NewResolvePOIsUsecase(
		searcher,
		usecase.DefaultTiers,
		cfg.CacheSize,
		time.Duration(cfg.CacheTTLMin)*time.Minute,
		log,
	)
	narrateUsecase := usecase.NewNarrateUsecase(
		resolveUsecase,
		geocoder,
		usecase.NewFactsPromptBuilder(),
		generator,
		usecase.NewNarrationValidator(),
		time.Duration(cfg.ResolveBudgetMs)*time.Millisecond,
		cfg.MaxOutputTokens,
		cfg.MaxRetries,
		time.Duration(cfg.RetryDelayMs)*time.Millisecond,
		log,
	)

	return &ApplicationComponents{
		ResolveUsecase: resolveUsecase,
		NarrateUsecase: narrateUsecase,
		Handler:        narrate_http.NewHandler(narrateUsecase, log),
	}
}
