package models

import "time"

// IssueStatus tracks the issue's position in the downstream pipeline.
// This service only ever creates issues as "pending"; the decoration and
// delivery collaborators move them to "sent" afterwards.
type IssueStatus string

const (
	IssueStatusPending IssueStatus = "pending"
	IssueStatusSent    IssueStatus = "sent"
)

// Valid reports whether s is a known issue status.
func (s IssueStatus) Valid() bool {
	return s == IssueStatusPending || s == IssueStatusSent
}

// SlotPick is the committed winner of one selection step. Picks are
// persisted one at a time, immediately after validation, so a run that
// dies at slot 4 still leaves slots 1-3 on disk.
type SlotPick struct {
	Slot      int       `json:"slot"`
	ItemID    string    `json:"item_id"`
	Headline  string    `json:"headline"`
	Company   string    `json:"company,omitempty"`
	SourceID  string    `json:"source_id"`
	Reasoning string    `json:"reasoning,omitempty"`
	PickedAt  time.Time `json:"picked_at"`
}

// Issue is the assembled daily output: five picks plus a subject line,
// keyed by its date (YYYY-MM-DD).
type Issue struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	SubjectLine string      `json:"subject_line"`
	Status      IssueStatus `json:"status"`
	Picks       []SlotPick  `json:"picks"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PickForSlot returns the pick for the given slot, or nil.
func (i *Issue) PickForSlot(slot int) *SlotPick {
	for idx := range i.Picks {
		if i.Picks[idx].Slot == slot {
			return &i.Picks[idx]
		}
	}
	return nil
}
