package usecase

import (
	"placetale/internal/domain"
)

// NarrateInput carries the parameters of one narration request.
type NarrateInput struct {
	Point    domain.GeoPoint
	BudgetMs int
}

// NarrateMeta is the metadata emitted before any narrative content: the
// location label, ordered image-lookup candidate titles, the curated
// selections and any resolver warnings.
type NarrateMeta struct {
	RequestID      string                  `json:"request_id"`
	Label          string                  `json:"label"`
	WikiCandidates []string                `json:"wiki_candidates"`
	Selection      domain.CuratedSelection `json:"selection"`
	Warnings       []string                `json:"warnings,omitempty"`
	ModelVersion   string                  `json:"model_version,omitempty"`
}

// NarrateOutput is the complete result of a non-streaming narration call.
type NarrateOutput struct {
	Meta      NarrateMeta             `json:"meta"`
	Narration *domain.NarrationOutput `json:"narration"`
}

type StreamEventKind string

const (
	StreamEventKindMeta    StreamEventKind = "meta"
	StreamEventKindContent StreamEventKind = "content"
	StreamEventKindError   StreamEventKind = "error"
	StreamEventKindDone    StreamEventKind = "done"
)

// StreamEvent is one logical event on the narration stream. Meta carries a
// NarrateMeta payload, content carries a narrative text segment, error
// carries a single-line human-readable message.
type StreamEvent struct {
	Kind    StreamEventKind
	Meta    *NarrateMeta
	Text    string
	Message string
}
