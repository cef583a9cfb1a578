package oracle

import (
	"context"
	"time"
)

// CandidateSummary is the view of a candidate item shared with the oracles:
// enough to judge topical fit, nothing more.
type CandidateSummary struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	SourceID    string    `json:"source_id"`
	Company     string    `json:"company,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Credibility float64   `json:"credibility"`
}

// ClassifyRequest asks which slots each item in a batch may fill.
type ClassifyRequest struct {
	Items           []CandidateSummary
	RecentHeadlines []string
}

// SlotVerdict is the oracle's judgment for one item.
type SlotVerdict struct {
	ItemID    string `json:"item_id"`
	Slots     []int  `json:"slots"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ClassifyResponse carries one verdict per judged item. Items the oracle
// omits are treated as eligible for nothing.
type ClassifyResponse struct {
	Verdicts []SlotVerdict `json:"verdicts"`
}

// Constraints is the diversity context handed to the selector: everything a
// later slot must avoid because of earlier commitments, plus yesterday's
// issue for topic-rotation judgment.
type Constraints struct {
	ExcludeItemIDs        []string `json:"exclude_item_ids,omitempty"`
	ExcludeCompanies      []string `json:"exclude_companies,omitempty"`
	ExhaustedSources      []string `json:"exhausted_sources,omitempty"`
	YesterdayHeadlines    []string `json:"yesterday_headlines,omitempty"`
	YesterdaySlot1Company string   `json:"yesterday_slot1_company,omitempty"`
}

// SelectRequest asks for one winner for one slot.
type SelectRequest struct {
	Slot        int
	Focus       string
	Guidance    string
	Candidates  []CandidateSummary
	Constraints Constraints
}

// Selection is the selector's answer. The orchestrator re-validates it
// against the hard diversity invariants; the validate tags only reject
// structurally incomplete responses.
type Selection struct {
	ItemID    string `json:"item_id" validate:"required"`
	Headline  string `json:"headline" validate:"required"`
	Company   string `json:"company,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// SubjectRequest asks for a subject line covering the five headlines.
type SubjectRequest struct {
	Headlines []string
	MaxLength int
}

// Classifier judges slot eligibility for a batch of items.
type Classifier interface {
	ClassifySlots(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)
}

// Selector picks one winner for a slot under diversity constraints.
type Selector interface {
	SelectWinner(ctx context.Context, req SelectRequest) (*Selection, error)
}

// Summarizer produces the short subject-line text.
type Summarizer interface {
	SubjectLine(ctx context.Context, req SubjectRequest) (string, error)
}
