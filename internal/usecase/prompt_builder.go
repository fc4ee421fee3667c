package usecase

import (
	"fmt"
	"strings"

	"placetale/internal/domain"
)

// PromptBuilder renders the generation prompt from the location label and the
// curated selection.
type PromptBuilder interface {
	Build(label string, selection domain.CuratedSelection) string
}

// FactsPromptBuilder emits a facts-only data block followed by a strict
// output contract. Deterministic given its inputs.
type FactsPromptBuilder struct {
	additionalInstructions []string
}

// NewFactsPromptBuilder creates a prompt builder with optional extra
// instruction lines appended to the contract.
func NewFactsPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &FactsPromptBuilder{
		additionalInstructions: additionalInstructions,
	}
}

func (b *FactsPromptBuilder) Build(label string, selection domain.CuratedSelection) string {
	var sb strings.Builder

	sb.WriteString("You are a local guide writing a short, factual narrative about a place.\n")
	sb.WriteString("Use ONLY the place names listed in the FACTS block below. Never invent or rename a place.\n\n")

	sb.WriteString("FACTS\n")
	sb.WriteString("Location: ")
	sb.WriteString(strings.TrimSpace(label))
	sb.WriteString("\n")

	sb.WriteString("Attractions:\n")
	if len(selection.Attractions) == 0 {
		sb.WriteString("- none found in data\n")
	}
	for _, p := range selection.Attractions {
		sb.WriteString(fmt.Sprintf("- %s (%.1f km) [%s]", p.Name, p.DistanceKm, p.Bucket))
		if p.Hint != "" {
			sb.WriteString(" " + p.Hint)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Food and drink:\n")
	if len(selection.Eateries) == 0 {
		sb.WriteString("- none found in data\n")
	}
	for _, p := range selection.Eateries {
		sb.WriteString(fmt.Sprintf("- %s (%.1f km) [%s]\n", p.Name, p.DistanceKm, p.FoodKind))
	}
	sb.WriteString("\n")

	sb.WriteString("OUTPUT\n")
	sb.WriteString("Respond with a single JSON object:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"intro_paragraph\": \"2-3 sentences introducing the location, max 500 characters\",\n")
	sb.WriteString("  \"detail_paragraph\": \"4-6 sentences about specific places from FACTS, max 1200 characters\",\n")
	sb.WriteString("  \"places_to_visit\": [{\"name\": \"...\", \"distance_km\": 0.0}] with exactly 3 entries,\n")
	sb.WriteString("  \"activities\": {\"walk\": \"...\", \"culture\": \"...\", \"food_drink\": \"...\"} each max 300 characters\n")
	sb.WriteString("}\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Every name in places_to_visit and food_drink must appear in the FACTS block.\n")
	sb.WriteString(fmt.Sprintf("- If a FACTS section says \"none found in data\", write %q for the corresponding fields.\n", domain.NoneFoundSentinel))
	sb.WriteString("- walk and culture describe generic activities and must contain no place names.\n")
	sb.WriteString("- detail_paragraph must mention at least two of the places_to_visit names.\n")

	for _, inst := range b.additionalInstructions {
		sb.WriteString("- ")
		sb.WriteString(inst)
		sb.WriteString("\n")
	}

	return sb.String()
}
