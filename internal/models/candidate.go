package models

import "time"

// CandidateItem is an ingested content item. Ingestion is an external
// collaborator; this service treats candidates as immutable once written.
type CandidateItem struct {
	ID          string    `json:"id" validate:"required"`
	Headline    string    `json:"headline" validate:"required"`
	PublishedAt time.Time `json:"published_at" validate:"required"`
	SourceID    string    `json:"source_id" validate:"required"`
	Company     string    `json:"company,omitempty"`
	URL         string    `json:"url" validate:"required,url"`
}

// Age returns how old the item is at the given instant.
func (c CandidateItem) Age(now time.Time) time.Duration {
	return now.Sub(c.PublishedAt)
}

// EligibilityRecord marks one candidate as eligible for one slot.
// Records are keyed by (item, slot); a re-classification replaces the
// record for the same key instead of adding another one.
type EligibilityRecord struct {
	ItemID       string    `json:"item_id"`
	Slot         int       `json:"slot"`
	ClassifiedAt time.Time `json:"classified_at"`
	Reasoning    string    `json:"reasoning,omitempty"`
}
