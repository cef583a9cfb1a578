package selection

import (
	"errors"
	"testing"

	"github.com/briefwire/curator/internal/models"
)

func TestNewDiversityStateFromYesterday(t *testing.T) {
	yesterday := &models.Issue{
		Date:   "2026-08-27",
		Status: models.IssueStatusSent,
		Picks: []models.SlotPick{
			{Slot: 1, ItemID: "a", Headline: "Acme raises rates", Company: "Acme", SourceID: "wire"},
			{Slot: 2, ItemID: "b", Headline: "Lab ships model", Company: "BigLab", SourceID: "blog"},
		},
	}

	state := NewDiversityState(yesterday)
	if state.YesterdaySlot1Company != "Acme" {
		t.Errorf("YesterdaySlot1Company = %q, want Acme", state.YesterdaySlot1Company)
	}
	if len(state.YesterdayHeadlines) != 2 {
		t.Errorf("YesterdayHeadlines = %v, want 2 entries", state.YesterdayHeadlines)
	}
	if len(state.ChosenItemIDs) != 0 {
		t.Error("yesterday's picks must not count as chosen today")
	}

	empty := NewDiversityState(nil)
	if empty.YesterdaySlot1Company != "" || len(empty.ChosenItemIDs) != 0 {
		t.Errorf("nil issue should give an empty state, got %+v", empty)
	}
}

func TestValidateInvariants(t *testing.T) {
	base := NewDiversityState(nil)
	base = base.Advance(models.SlotPick{Slot: 1, ItemID: "x", Company: "Acme", SourceID: "reuters"})
	base = base.Advance(models.SlotPick{Slot: 2, ItemID: "y", Company: "BigLab", SourceID: "reuters"})

	tests := []struct {
		name    string
		pick    models.SlotPick
		wantErr error
	}{
		{
			name:    "clean pick passes",
			pick:    models.SlotPick{Slot: 3, ItemID: "z", Company: "NewCo", SourceID: "blog"},
			wantErr: nil,
		},
		{
			name:    "repeated item",
			pick:    models.SlotPick{Slot: 3, ItemID: "x", Company: "NewCo", SourceID: "blog"},
			wantErr: ErrItemAlreadyChosen,
		},
		{
			name:    "repeated company",
			pick:    models.SlotPick{Slot: 3, ItemID: "z", Company: "Acme", SourceID: "blog"},
			wantErr: ErrCompanyAlreadyChosen,
		},
		{
			name:    "empty company never collides",
			pick:    models.SlotPick{Slot: 3, ItemID: "z", Company: "", SourceID: "blog"},
			wantErr: nil,
		},
		{
			name:    "source at cap of two",
			pick:    models.SlotPick{Slot: 3, ItemID: "z", Company: "NewCo", SourceID: "reuters"},
			wantErr: ErrSourceExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := base.Validate(tt.pick)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlot1Rotation(t *testing.T) {
	state := NewDiversityState(&models.Issue{
		Picks: []models.SlotPick{{Slot: 1, Company: "Acme", Headline: "h"}},
	})

	err := state.Validate(models.SlotPick{Slot: 1, ItemID: "z", Company: "Acme", SourceID: "wire"})
	if !errors.Is(err, ErrYesterdayCompany) {
		t.Errorf("slot-1 repeat of yesterday's company: err = %v, want ErrYesterdayCompany", err)
	}

	// The rotation rule binds slot 1 only.
	if err := state.Validate(models.SlotPick{Slot: 2, ItemID: "z", Company: "Acme", SourceID: "wire"}); err != nil {
		t.Errorf("slot-2 pick of yesterday's slot-1 company should pass, got %v", err)
	}
}

func TestAdvanceDoesNotMutateReceiver(t *testing.T) {
	before := NewDiversityState(nil)
	after := before.Advance(models.SlotPick{Slot: 1, ItemID: "x", Company: "Acme", SourceID: "wire"})

	if len(before.ChosenItemIDs) != 0 || len(before.ChosenCompanies) != 0 || len(before.SourceCounts) != 0 {
		t.Errorf("Advance mutated its input: %+v", before)
	}
	if _, ok := after.ChosenItemIDs["x"]; !ok {
		t.Error("Advance did not record the item")
	}
	if _, ok := after.ChosenCompanies["Acme"]; !ok {
		t.Error("Advance did not record the company")
	}
	if after.SourceCounts["wire"] != 1 {
		t.Errorf("SourceCounts[wire] = %d, want 1", after.SourceCounts["wire"])
	}
}

func TestConstraintsRendering(t *testing.T) {
	state := NewDiversityState(&models.Issue{
		Picks: []models.SlotPick{{Slot: 1, Company: "Acme", Headline: "h1"}},
	})
	state = state.Advance(models.SlotPick{Slot: 1, ItemID: "a", Company: "NewCo", SourceID: "reuters"})
	state = state.Advance(models.SlotPick{Slot: 2, ItemID: "b", Company: "Other", SourceID: "reuters"})

	c1 := state.Constraints(1)
	if c1.YesterdaySlot1Company != "Acme" {
		t.Errorf("slot-1 constraints missing rotation company: %+v", c1)
	}
	if len(c1.ExhaustedSources) != 1 || c1.ExhaustedSources[0] != "reuters" {
		t.Errorf("ExhaustedSources = %v, want [reuters]", c1.ExhaustedSources)
	}

	c3 := state.Constraints(3)
	if c3.YesterdaySlot1Company != "" {
		t.Error("rotation constraint leaked into a non-slot-1 request")
	}
	if len(c3.ExcludeItemIDs) != 2 {
		t.Errorf("ExcludeItemIDs = %v, want both chosen items", c3.ExcludeItemIDs)
	}
}
