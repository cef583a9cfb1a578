package models

// RunOutcome is the user-visible result of one selection run.
type RunOutcome string

const (
	// RunComplete means all five slots were filled and the issue assembled.
	RunComplete RunOutcome = "complete"
	// RunPartial means the run stopped early; committed picks stand.
	RunPartial RunOutcome = "partial"
	// RunRejected means the run never started (duplicate trigger,
	// issue already exists for the date).
	RunRejected RunOutcome = "rejected"
)

// SlotStatus describes what happened to a single slot within a run.
type SlotStatus string

const (
	SlotPicked     SlotStatus = "picked"
	SlotFailed     SlotStatus = "failed"
	SlotNotReached SlotStatus = "not_reached"
)

// SlotResult carries the per-slot detail of a run report.
type SlotResult struct {
	Slot   int        `json:"slot"`
	Status SlotStatus `json:"status"`
	Pick   *SlotPick  `json:"pick,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// RunReport is what a selection run returns to its caller.
type RunReport struct {
	Date    string       `json:"date"`
	Outcome RunOutcome   `json:"outcome"`
	Reason  string       `json:"reason,omitempty"`
	Slots   []SlotResult `json:"slots,omitempty"`
	Issue   *Issue       `json:"issue,omitempty"`
	DryRun  bool         `json:"dry_run,omitempty"`
}

// FilledSlots counts slots that produced a committed pick.
func (r RunReport) FilledSlots() int {
	n := 0
	for _, s := range r.Slots {
		if s.Status == SlotPicked {
			n++
		}
	}
	return n
}
