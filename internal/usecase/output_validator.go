package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"placetale/internal/domain"
)

const (
	maxIntroLen    = 600
	maxDetailLen   = 1400
	maxActivityLen = 400
	placesRequired = 3
)

// NarrationValidator parses model output into a NarrationOutput and checks it
// against the schema and, when an allowed-name set is supplied, against the
// anti-hallucination rules.
type NarrationValidator struct{}

func NewNarrationValidator() NarrationValidator {
	return NarrationValidator{}
}

// Validate runs PARSE, SCHEMA_VALIDATE and SEMANTIC_VALIDATE for one attempt.
// The returned error aggregates every issue found so the retry loop can carry
// the full list.
func (v NarrationValidator) Validate(raw string, allowedNames []string) (*domain.NarrationOutput, error) {
	output, err := parseNarration(raw)
	if err != nil {
		return nil, err
	}

	var issues []string
	issues = append(issues, schemaIssues(output)...)
	if len(issues) == 0 {
		issues = append(issues, semanticIssues(output, allowedNames)...)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("narration validation failed: %s", strings.Join(issues, "; "))
	}

	return output, nil
}

// extractionStrategy attempts to locate a parseable JSON document in text.
type extractionStrategy func(text string) (string, bool)

var extractionStrategies = []extractionStrategy{
	// Direct parse of the whole text.
	func(text string) (string, bool) {
		return text, true
	},
	// Fenced code block, with or without a language tag.
	func(text string) (string, bool) {
		for _, fence := range []string{"```json", "```"} {
			if idx := strings.Index(text, fence); idx >= 0 {
				after := text[idx+len(fence):]
				if end := strings.Index(after, "```"); end >= 0 {
					return strings.TrimSpace(after[:end]), true
				}
			}
		}
		return "", false
	},
	// First { to last } span inside surrounding prose.
	func(text string) (string, bool) {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			return text[start : end+1], true
		}
		return "", false
	},
}

func parseNarration(raw string) (*domain.NarrationOutput, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("model response is empty")
	}

	for _, strategy := range extractionStrategies {
		candidate, ok := strategy(text)
		if !ok {
			continue
		}
		var output domain.NarrationOutput
		if err := json.Unmarshal([]byte(candidate), &output); err == nil {
			return &output, nil
		}
	}

	return nil, fmt.Errorf("no parseable JSON found in model response: %.120s", text)
}

func schemaIssues(o *domain.NarrationOutput) []string {
	var issues []string

	if strings.TrimSpace(o.IntroParagraph) == "" {
		issues = append(issues, "intro_paragraph is empty")
	} else if len(o.IntroParagraph) > maxIntroLen {
		issues = append(issues, fmt.Sprintf("intro_paragraph exceeds %d characters", maxIntroLen))
	}

	if strings.TrimSpace(o.DetailParagraph) == "" {
		issues = append(issues, "detail_paragraph is empty")
	} else if len(o.DetailParagraph) > maxDetailLen {
		issues = append(issues, fmt.Sprintf("detail_paragraph exceeds %d characters", maxDetailLen))
	}

	if len(o.PlacesToVisit) != placesRequired {
		issues = append(issues, fmt.Sprintf("places_to_visit must have exactly %d entries, got %d", placesRequired, len(o.PlacesToVisit)))
	}
	for i, place := range o.PlacesToVisit {
		if strings.TrimSpace(place.Name) == "" {
			issues = append(issues, fmt.Sprintf("places_to_visit[%d].name is empty", i))
		}
		if place.DistanceKm < 0 {
			issues = append(issues, fmt.Sprintf("places_to_visit[%d].distance_km is negative", i))
		}
	}

	for field, value := range map[string]string{
		"activities.walk":       o.Activities.Walk,
		"activities.culture":    o.Activities.Culture,
		"activities.food_drink": o.Activities.FoodDrink,
	} {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, field+" is empty")
		} else if len(value) > maxActivityLen {
			issues = append(issues, fmt.Sprintf("%s exceeds %d characters", field, maxActivityLen))
		}
	}

	return issues
}

func semanticIssues(o *domain.NarrationOutput, allowedNames []string) []string {
	var issues []string

	if len(allowedNames) == 0 {
		// No facts resolved: every place slot and the food line must carry
		// the sentinel so the model cannot fabricate when nothing is known.
		for i, place := range o.PlacesToVisit {
			if place.Name != domain.NoneFoundSentinel {
				issues = append(issues, fmt.Sprintf("places_to_visit[%d] must be the %q sentinel when no facts exist", i, domain.NoneFoundSentinel))
			}
		}
		if o.Activities.FoodDrink != domain.NoneFoundSentinel {
			issues = append(issues, fmt.Sprintf("activities.food_drink must be the %q sentinel when no facts exist", domain.NoneFoundSentinel))
		}
		return issues
	}

	allowed := make(map[string]struct{}, len(allowedNames))
	for _, name := range allowedNames {
		allowed[name] = struct{}{}
	}

	for i, place := range o.PlacesToVisit {
		if place.Name == domain.NoneFoundSentinel {
			continue
		}
		if _, ok := allowed[place.Name]; !ok {
			issues = append(issues, fmt.Sprintf("places_to_visit[%d] names %q which is not in the allowed set", i, place.Name))
		}
	}

	// Substring containment, folded for case. Known approximation: minor
	// rephrasing such as pluralization can still false-negative.
	if o.Activities.FoodDrink != domain.NoneFoundSentinel {
		foodLower := strings.ToLower(o.Activities.FoodDrink)
		found := false
		for _, name := range allowedNames {
			if strings.Contains(foodLower, strings.ToLower(name)) {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, "activities.food_drink mentions no allowed venue and is not the sentinel")
		}
	}

	detailLower := strings.ToLower(o.DetailParagraph)
	mentioned, real := 0, 0
	for _, place := range o.PlacesToVisit {
		if place.Name == domain.NoneFoundSentinel {
			continue
		}
		real++
		if strings.Contains(detailLower, strings.ToLower(place.Name)) {
			mentioned++
		}
	}
	required := 2
	if real < required {
		required = real
	}
	if mentioned < required {
		issues = append(issues, fmt.Sprintf("detail_paragraph references %d of the places_to_visit names, need at least %d", mentioned, required))
	}

	return issues
}
