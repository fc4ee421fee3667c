package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"placetale/internal/domain"
)

const (
	maxSelectedAttractions = 3
	maxSelectedEateries    = 6
)

// NarrateUsecase turns a point into a fact-grounded, schema-validated
// narrative, either as one result or as an incremental event stream.
type NarrateUsecase interface {
	Execute(ctx context.Context, input NarrateInput) (*NarrateOutput, error)
	Stream(ctx context.Context, input NarrateInput) <-chan StreamEvent
}

type narrateUsecase struct {
	resolver      ResolvePOIsUsecase
	geocoder      domain.Geocoder
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	validator     NarrationValidator
	defaultBudget time.Duration
	maxTokens     int
	maxRetries    int
	retryDelay    time.Duration
	log           *slog.Logger
}

// NewNarrateUsecase wires the narration pipeline.
func NewNarrateUsecase(
	resolver ResolvePOIsUsecase,
	geocoder domain.Geocoder,
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	validator NarrationValidator,
	defaultBudget time.Duration,
	maxTokens, maxRetries int,
	retryDelay time.Duration,
	log *slog.Logger,
) NarrateUsecase {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &narrateUsecase{
		resolver:      resolver,
		geocoder:      geocoder,
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		validator:     validator,
		defaultBudget: defaultBudget,
		maxTokens:     maxTokens,
		maxRetries:    maxRetries,
		retryDelay:    retryDelay,
		log:           log,
	}
}

func (u *narrateUsecase) Execute(ctx context.Context, input NarrateInput) (*NarrateOutput, error) {
	if !input.Point.Valid() {
		return nil, fmt.Errorf("invalid coordinates")
	}

	meta, prompt, allowed := u.prepare(ctx, input)
	narration, err := u.generateValidated(ctx, prompt, allowed)
	if err != nil {
		return nil, err
	}

	return &NarrateOutput{Meta: meta, Narration: narration}, nil
}

// prepare runs the geocode lookup and the POI resolution concurrently, then
// curates the selection and renders the prompt. Upstream failures degrade to
// a no-facts prompt rather than aborting.
func (u *narrateUsecase) prepare(ctx context.Context, input NarrateInput) (NarrateMeta, string, []string) {
	budget := u.defaultBudget
	if input.BudgetMs > 0 {
		budget = time.Duration(input.BudgetMs) * time.Millisecond
	}

	label := input.Point.Label()
	var resolved domain.ResolvedPOIs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resolvedLabel, err := u.geocoder.ReverseLabel(gctx, input.Point)
		if err != nil {
			u.log.Warn("reverse geocode failed, using coordinate label", slog.String("error", err.Error()))
			return nil
		}
		label = resolvedLabel
		return nil
	})
	g.Go(func() error {
		resolved = u.resolver.Execute(gctx, input.Point, budget)
		return nil
	})
	_ = g.Wait()

	selection := domain.CuratedSelection{
		Attractions: SelectAttractions(resolved.Attractions, maxSelectedAttractions),
		Eateries:    SelectFood(resolved.Food, maxSelectedEateries),
	}

	var warnings []string
	if resolved.Warning != "" {
		warnings = append(warnings, resolved.Warning)
	}
	if resolved.Err != "" {
		warnings = append(warnings, "no nearby facts could be resolved")
		u.log.Warn("proceeding in no-facts mode", slog.String("resolver_error", resolved.Err))
	}

	meta := NarrateMeta{
		RequestID:      uuid.NewString(),
		Label:          label,
		WikiCandidates: wikiCandidates(label, selection),
		Selection:      selection,
		Warnings:       warnings,
		ModelVersion:   u.llmClient.Version(),
	}

	prompt := u.promptBuilder.Build(label, selection)
	return meta, prompt, selection.AllowedNames()
}

// attemptState is the retry loop's explicit state, passed by value between
// iterations.
type attemptState struct {
	attempt int
	issues  []string
}

// generateValidated drives CALL_MODEL -> PARSE -> VALIDATE attempts until one
// is accepted or the retry budget is spent.
func (u *narrateUsecase) generateValidated(ctx context.Context, prompt string, allowedNames []string) (*domain.NarrationOutput, error) {
	state := attemptState{}

	for state.attempt < u.maxRetries {
		state.attempt++

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := u.llmClient.Generate(ctx, prompt, u.maxTokens)
		if err != nil {
			state.issues = append(state.issues, fmt.Sprintf("attempt %d: generation call failed: %v", state.attempt, err))
		} else if resp == nil || strings.TrimSpace(resp.Text) == "" {
			state.issues = append(state.issues, fmt.Sprintf("attempt %d: empty model response", state.attempt))
		} else {
			narration, verr := u.validator.Validate(resp.Text, allowedNames)
			if verr == nil {
				u.log.Info("narration accepted", slog.Int("attempt", state.attempt))
				return narration, nil
			}
			state.issues = append(state.issues, fmt.Sprintf("attempt %d: %v", state.attempt, verr))
		}

		u.log.Warn("narration attempt rejected",
			slog.Int("attempt", state.attempt),
			slog.String("issue", state.issues[len(state.issues)-1]))

		if state.attempt < u.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(u.retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("could not produce a valid structured response after %d attempts: %s",
		state.attempt, strings.Join(state.issues, " | "))
}

func (u *narrateUsecase) Stream(ctx context.Context, input NarrateInput) <-chan StreamEvent {
	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)

		if !input.Point.Valid() {
			u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Message: "invalid coordinates",
			})
			return
		}

		meta, prompt, allowed := u.prepare(ctx, input)

		// Metadata always precedes narrative content.
		if !u.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindMeta, Meta: &meta}) {
			return
		}

		narration, err := u.generateValidated(ctx, prompt, allowed)
		if err != nil {
			if ctx.Err() != nil {
				// Caller is gone; emit nothing further.
				return
			}
			u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Message: err.Error(),
			})
			return
		}

		for _, segment := range RenderNarrationSegments(narration) {
			if !u.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindContent, Text: segment}) {
				return
			}
		}

		u.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindDone})
	}()

	return events
}

func (u *narrateUsecase) sendStreamEvent(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}

// wikiCandidates orders image-lookup candidate titles: the location label
// first, then the selected attractions in selection order.
func wikiCandidates(label string, selection domain.CuratedSelection) []string {
	candidates := make([]string, 0, 1+len(selection.Attractions))
	if trimmed := strings.TrimSpace(label); trimmed != "" {
		// Nominatim labels are comma-joined; the leading component is the
		// most specific and the best lookup title.
		candidates = append(candidates, strings.TrimSpace(strings.Split(trimmed, ",")[0]))
	}
	for _, p := range selection.Attractions {
		candidates = append(candidates, p.Name)
	}
	return candidates
}

// RenderNarrationSegments assembles the fixed narrative rendering as the
// ordered content segments of the stream: intro, detail, the places line and
// the three activity lines as one multi-line segment.
func RenderNarrationSegments(n *domain.NarrationOutput) []string {
	places := make([]string, 0, len(n.PlacesToVisit))
	for _, p := range n.PlacesToVisit {
		places = append(places, fmt.Sprintf("%s (%.1f km)", p.Name, p.DistanceKm))
	}

	return []string{
		strings.TrimSpace(n.IntroParagraph),
		strings.TrimSpace(n.DetailParagraph),
		"Places to visit: " + strings.Join(places, "; "),
		fmt.Sprintf("Walk: %s\nCulture: %s\nFood/Drink: %s",
			strings.TrimSpace(n.Activities.Walk),
			strings.TrimSpace(n.Activities.Culture),
			strings.TrimSpace(n.Activities.FoodDrink)),
	}
}
