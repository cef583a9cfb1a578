package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/briefwire/curator/internal/models"
	"github.com/briefwire/curator/internal/oracle"
	"github.com/briefwire/curator/internal/slots"
)

// Hard invariant violations. Any of these failing a slot means the selector
// proposed something the issue must not contain; the slot fails outright.
var (
	ErrItemAlreadyChosen    = errors.New("item already chosen in an earlier slot")
	ErrCompanyAlreadyChosen = errors.New("company already chosen in an earlier slot")
	ErrSourceExhausted      = errors.New("source already at its per-issue cap")
	ErrYesterdayCompany     = errors.New("company matches yesterday's slot-1 pick")
)

// DiversityState is the cumulative context threaded through the five slot
// steps. It is a value: Advance returns a new state and never mutates the
// receiver, so every step's input and output can be inspected independently.
type DiversityState struct {
	ChosenItemIDs         map[string]struct{}
	ChosenCompanies       map[string]struct{}
	SourceCounts          map[string]int
	YesterdayHeadlines    []string
	YesterdaySlot1Company string
}

// NewDiversityState seeds a run's state from yesterday's sent issue.
// A nil issue (first ever run) yields an empty state.
func NewDiversityState(yesterday *models.Issue) DiversityState {
	s := DiversityState{
		ChosenItemIDs:   map[string]struct{}{},
		ChosenCompanies: map[string]struct{}{},
		SourceCounts:    map[string]int{},
	}
	if yesterday == nil {
		return s
	}
	for _, pick := range yesterday.Picks {
		s.YesterdayHeadlines = append(s.YesterdayHeadlines, pick.Headline)
		if pick.Slot == 1 {
			s.YesterdaySlot1Company = pick.Company
		}
	}
	return s
}

// Validate checks a proposed pick against the hard diversity invariants.
// The selector oracle is told about all of them, but is not trusted.
func (s DiversityState) Validate(pick models.SlotPick) error {
	if _, chosen := s.ChosenItemIDs[pick.ItemID]; chosen {
		return fmt.Errorf("item %q: %w", pick.ItemID, ErrItemAlreadyChosen)
	}
	if pick.Company != "" {
		if _, chosen := s.ChosenCompanies[pick.Company]; chosen {
			return fmt.Errorf("company %q: %w", pick.Company, ErrCompanyAlreadyChosen)
		}
	}
	if s.SourceCounts[pick.SourceID] >= slots.MaxSourcePicks {
		return fmt.Errorf("source %q: %w", pick.SourceID, ErrSourceExhausted)
	}
	if pick.Slot == 1 && pick.Company != "" && pick.Company == s.YesterdaySlot1Company {
		return fmt.Errorf("company %q: %w", pick.Company, ErrYesterdayCompany)
	}
	return nil
}

// Advance folds a committed pick into a fresh state. The receiver is
// left untouched.
func (s DiversityState) Advance(pick models.SlotPick) DiversityState {
	next := DiversityState{
		ChosenItemIDs:         make(map[string]struct{}, len(s.ChosenItemIDs)+1),
		ChosenCompanies:       make(map[string]struct{}, len(s.ChosenCompanies)+1),
		SourceCounts:          make(map[string]int, len(s.SourceCounts)+1),
		YesterdayHeadlines:    s.YesterdayHeadlines,
		YesterdaySlot1Company: s.YesterdaySlot1Company,
	}
	for id := range s.ChosenItemIDs {
		next.ChosenItemIDs[id] = struct{}{}
	}
	for company := range s.ChosenCompanies {
		next.ChosenCompanies[company] = struct{}{}
	}
	for source, count := range s.SourceCounts {
		next.SourceCounts[source] = count
	}

	next.ChosenItemIDs[pick.ItemID] = struct{}{}
	if pick.Company != "" {
		next.ChosenCompanies[pick.Company] = struct{}{}
	}
	next.SourceCounts[pick.SourceID]++
	return next
}

// Constraints renders the state as selector-oracle input for a slot.
func (s DiversityState) Constraints(slot int) oracle.Constraints {
	c := oracle.Constraints{
		ExcludeItemIDs:     sortedKeys(s.ChosenItemIDs),
		ExcludeCompanies:   sortedKeys(s.ChosenCompanies),
		YesterdayHeadlines: s.YesterdayHeadlines,
	}
	for source, count := range s.SourceCounts {
		if count >= slots.MaxSourcePicks {
			c.ExhaustedSources = append(c.ExhaustedSources, source)
		}
	}
	sort.Strings(c.ExhaustedSources)
	if slot == 1 {
		c.YesterdaySlot1Company = s.YesterdaySlot1Company
	}
	return c
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
