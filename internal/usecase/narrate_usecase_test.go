package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placetale/internal/domain"
	"placetale/internal/usecase"
)

type stubResolver struct {
	result domain.ResolvedPOIs
}

func (s *stubResolver) Execute(context.Context, domain.GeoPoint, time.Duration) domain.ResolvedPOIs {
	return s.result
}

type stubGeocoder struct {
	label string
	err   error
}

func (s *stubGeocoder) ReverseLabel(context.Context, domain.GeoPoint) (string, error) {
	return s.label, s.err
}

// scriptedLLM returns its responses in order, repeating the last one once the
// script runs out.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

func (s *scriptedLLM) Generate(_ context.Context, _ string, _ int) (*domain.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &domain.LLMResponse{Text: s.responses[idx], Done: true}, nil
}

func (s *scriptedLLM) Version() string { return "test-model:1" }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

const validCornishNarration = `{
  "intro_paragraph": "A small harbour village on the Cornish coast. Its granite quays have sheltered fishing boats for centuries.",
  "detail_paragraph": "Begin at the Old Quay, where the harbour wall dates from the medieval period. A short walk uphill, Penlee House holds the region's best collection of Newlyn School paintings, and Mount View rewards the climb with a wide sweep of the bay.",
  "places_to_visit": [
    {"name": "Old Quay", "distance_km": 0.3},
    {"name": "Penlee House", "distance_km": 2.5},
    {"name": "Mount View", "distance_km": 1.1}
  ],
  "activities": {
    "walk": "Follow the coast path south past the rock pools at low tide.",
    "culture": "Browse the small artist studios open along the back lanes.",
    "food_drink": "The Ship Inn serves crab sandwiches by the harbour."
  }
}`

const sentinelNarration = `{
  "intro_paragraph": "A remote stretch of open moorland far from any settlement. The landscape itself is the attraction here.",
  "detail_paragraph": "There are no mapped attractions nearby, so the walking is the point. Expect heather, granite tors and long views in every direction, with weather that changes by the hour.",
  "places_to_visit": [
    {"name": "None found in data", "distance_km": 0},
    {"name": "None found in data", "distance_km": 0},
    {"name": "None found in data", "distance_km": 0}
  ],
  "activities": {
    "walk": "Pick a bearing and follow the old field boundaries across the moor.",
    "culture": "Look for bronze-age field patterns in the low evening light.",
    "food_drink": "None found in data"
  }
}`

func cornishResolved() domain.ResolvedPOIs {
	return domain.ResolvedPOIs{
		Attractions: []domain.PointOfInterest{
			{Name: "Old Quay", Category: domain.CategoryAttraction, Bucket: domain.BucketHistory, Score: 9, DistanceKm: 0.35},
			{Name: "Penlee House", Category: domain.CategoryAttraction, Bucket: domain.BucketCulture, Score: 8, DistanceKm: 2.48},
			{Name: "Mount View", Category: domain.CategoryAttraction, Bucket: domain.BucketScenic, Score: 5, DistanceKm: 1.12},
		},
		Food: []domain.PointOfInterest{
			{Name: "Ship Inn", Category: domain.CategoryFood, FoodKind: domain.FoodPub, Score: 10, DistanceKm: 0.21},
		},
	}
}

func newNarrateUnderTest(resolver usecase.ResolvePOIsUsecase, geocoder domain.Geocoder, llm domain.LLMClient) usecase.NarrateUsecase {
	return usecase.NewNarrateUsecase(
		resolver,
		geocoder,
		usecase.NewFactsPromptBuilder(),
		llm,
		usecase.NewNarrationValidator(),
		5*time.Second,
		900, 3,
		time.Millisecond,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestNarrateExecute_HappyPath(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Penzance, Cornwall, England"},
		llm,
	)

	out, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}})

	require.NoError(t, err)
	assert.Equal(t, "Mousehole, Penzance, Cornwall, England", out.Meta.Label)
	assert.NotEmpty(t, out.Meta.RequestID)
	assert.Equal(t, "test-model:1", out.Meta.ModelVersion)
	assert.Empty(t, out.Meta.Warnings)
	assert.Equal(t, "Old Quay", out.Narration.PlacesToVisit[0].Name)
	assert.Equal(t, 1, llm.callCount())
}

func TestNarrateExecute_WikiCandidatesLeadWithLabelComponent(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Penzance, Cornwall, England"},
		llm,
	)

	out, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}})

	require.NoError(t, err)
	require.NotEmpty(t, out.Meta.WikiCandidates)
	assert.Equal(t, "Mousehole", out.Meta.WikiCandidates[0])
	assert.Contains(t, out.Meta.WikiCandidates, "Penlee House")
}

func TestNarrateExecute_RetriesUntilValid(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"sorry, I cannot produce JSON today",
		validCornishNarration,
	}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Cornwall"},
		llm,
	)

	out, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}})

	require.NoError(t, err)
	assert.Equal(t, 2, llm.callCount())
	assert.NotNil(t, out.Narration)
}

func TestNarrateExecute_RetryBudgetExhausted(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"not json"}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Cornwall"},
		llm,
	)

	_, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not produce a valid structured response after 3 attempts")
	assert.Equal(t, 3, llm.callCount())
}

func TestNarrateExecute_GenerationErrorSurfacesInAttemptLog(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("connection refused")}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Cornwall"},
		llm,
	)

	_, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation call failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNarrateExecute_GeocodeFailureFallsBackToCoordinates(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{err: errors.New("nominatim unreachable")},
		llm,
	)

	out, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}})

	require.NoError(t, err)
	assert.Equal(t, "50.0804, -5.5404", out.Meta.Label)
}

func TestNarrateExecute_NoFactsModeRequiresSentinels(t *testing.T) {
	llm := &scriptedLLM{responses: []string{sentinelNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: domain.ResolvedPOIs{Err: "all overpass mirrors failed"}},
		&stubGeocoder{label: "Open Moor, Cornwall"},
		llm,
	)

	out, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.2, Lon: -4.9}})

	require.NoError(t, err)
	assert.Contains(t, out.Meta.Warnings, "no nearby facts could be resolved")
	for _, p := range out.Narration.PlacesToVisit {
		assert.Equal(t, domain.NoneFoundSentinel, p.Name)
	}
}

func TestNarrateExecute_NoFactsModeRejectsInventedPlaces(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: domain.ResolvedPOIs{Err: "all overpass mirrors failed"}},
		&stubGeocoder{label: "Open Moor, Cornwall"},
		llm,
	)

	_, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.2, Lon: -4.9}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not produce a valid structured response")
}

func TestNarrateExecute_InvalidCoordinates(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(&stubResolver{}, &stubGeocoder{}, llm)

	_, err := uc.Execute(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 120, Lon: 900}})

	require.Error(t, err)
	assert.Zero(t, llm.callCount())
}

func TestNarrateStream_EventOrder(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Cornwall"},
		llm,
	)

	var events []usecase.StreamEvent
	for ev := range uc.Stream(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}}) {
		events = append(events, ev)
	}

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, usecase.StreamEventKindMeta, events[0].Kind)
	require.NotNil(t, events[0].Meta)
	assert.Equal(t, "Mousehole, Cornwall", events[0].Meta.Label)

	assert.Equal(t, usecase.StreamEventKindDone, events[len(events)-1].Kind)
	for _, ev := range events[1 : len(events)-1] {
		assert.Equal(t, usecase.StreamEventKindContent, ev.Kind)
		assert.NotEmpty(t, ev.Text)
	}
}

func TestNarrateStream_ContentSegments(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validCornishNarration}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Cornwall"},
		llm,
	)

	var content []string
	for ev := range uc.Stream(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}}) {
		if ev.Kind == usecase.StreamEventKindContent {
			content = append(content, ev.Text)
		}
	}

	require.Len(t, content, 4)
	assert.Contains(t, content[2], "Places to visit: Old Quay (0.3 km); Penlee House (2.5 km); Mount View (1.1 km)")
	assert.Contains(t, content[3], "Walk: ")
	assert.Contains(t, content[3], "Food/Drink: ")
}

func TestNarrateStream_GenerationFailureEmitsErrorEvent(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"not json"}}
	uc := newNarrateUnderTest(
		&stubResolver{result: cornishResolved()},
		&stubGeocoder{label: "Mousehole, Cornwall"},
		llm,
	)

	var events []usecase.StreamEvent
	for ev := range uc.Stream(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 50.0804, Lon: -5.5404}}) {
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, usecase.StreamEventKindMeta, events[0].Kind)
	assert.Equal(t, usecase.StreamEventKindError, events[1].Kind)
	assert.Contains(t, events[1].Message, "could not produce a valid structured response")
}

func TestNarrateStream_InvalidCoordinates(t *testing.T) {
	uc := newNarrateUnderTest(&stubResolver{}, &stubGeocoder{}, &scriptedLLM{responses: []string{"x"}})

	var events []usecase.StreamEvent
	for ev := range uc.Stream(context.Background(), usecase.NarrateInput{Point: domain.GeoPoint{Lat: 91, Lon: 0}}) {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	assert.Equal(t, usecase.StreamEventKindError, events[0].Kind)
}
