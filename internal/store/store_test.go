package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/briefwire/curator/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return st
}

func candidate(id, source, company string, publishedAt time.Time) models.CandidateItem {
	return models.CandidateItem{
		ID:          id,
		Headline:    "Headline for " + id,
		PublishedAt: publishedAt,
		SourceID:    source,
		Company:     company,
		URL:         "https://example.com/" + id,
	}
}

func TestUpsertEligibilityIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := models.EligibilityRecord{ItemID: "item-1", Slot: 2, ClassifiedAt: time.Now().Add(-time.Hour)}
	second := models.EligibilityRecord{ItemID: "item-1", Slot: 2, ClassifiedAt: time.Now(), Reasoning: "re-run"}

	if err := st.UpsertEligibility(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.UpsertEligibility(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	recs, err := st.EligibilityForSlot(ctx, 2)
	if err != nil {
		t.Fatalf("EligibilityForSlot: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records for (item-1, 2), want exactly 1", len(recs))
	}
	if recs[0].Reasoning != "re-run" {
		t.Errorf("record was not replaced: reasoning = %q", recs[0].Reasoning)
	}

	// Same item in a different slot is a different key.
	other := models.EligibilityRecord{ItemID: "item-1", Slot: 4, ClassifiedAt: time.Now()}
	if err := st.UpsertEligibility(ctx, other); err != nil {
		t.Fatalf("other-slot upsert: %v", err)
	}
	recs, _ = st.EligibilityForSlot(ctx, 2)
	if len(recs) != 1 {
		t.Errorf("slot 2 gained records from a slot-4 write: %d", len(recs))
	}
}

func TestEligibleForSlotFiltersByPublishedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	fresh := candidate("fresh", "wire", "", now.Add(-2*time.Hour))
	stale := candidate("stale", "wire", "", now.Add(-30*time.Hour))
	for _, item := range []models.CandidateItem{fresh, stale} {
		if err := st.SaveCandidate(ctx, item); err != nil {
			t.Fatalf("SaveCandidate(%s): %v", item.ID, err)
		}
		if err := st.UpsertEligibility(ctx, models.EligibilityRecord{ItemID: item.ID, Slot: 1, ClassifiedAt: now}); err != nil {
			t.Fatalf("UpsertEligibility(%s): %v", item.ID, err)
		}
	}

	got, err := st.EligibleForSlot(ctx, 1, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("EligibleForSlot: %v", err)
	}
	if len(got) != 1 || got[0].Item.ID != "fresh" {
		t.Fatalf("EligibleForSlot = %+v, want only item fresh", got)
	}
}

func TestEligibleForSlotSkipsOrphanedRecords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.UpsertEligibility(ctx, models.EligibilityRecord{ItemID: "ghost", Slot: 3, ClassifiedAt: now}); err != nil {
		t.Fatalf("UpsertEligibility: %v", err)
	}

	got, err := st.EligibleForSlot(ctx, 3, now.Add(-168*time.Hour))
	if err != nil {
		t.Fatalf("EligibleForSlot: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected orphaned record to be skipped, got %+v", got)
	}
}

func TestSlotPicksSurviveIndependently(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// A run that died after slot 2 leaves two picks on disk.
	for slot := 1; slot <= 2; slot++ {
		pick := models.SlotPick{Slot: slot, ItemID: "item", SourceID: "wire", PickedAt: time.Now()}
		pick.ItemID = pick.ItemID + string(rune('0'+slot))
		if err := st.SaveSlotPick(ctx, "2026-08-28", pick); err != nil {
			t.Fatalf("SaveSlotPick(%d): %v", slot, err)
		}
	}

	picks, err := st.SlotPicks(ctx, "2026-08-28")
	if err != nil {
		t.Fatalf("SlotPicks: %v", err)
	}
	if len(picks) != 2 {
		t.Fatalf("got %d picks, want 2", len(picks))
	}
	if picks[0].Slot != 1 || picks[1].Slot != 2 {
		t.Errorf("picks out of slot order: %+v", picks)
	}

	// No issue has been assembled for the date.
	if _, err := st.GetIssue(ctx, "2026-08-28"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetIssue = %v, want ErrNotFound", err)
	}
}

func TestLatestIssueByStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	issues := []models.Issue{
		{ID: "issue-2026-08-25", Date: "2026-08-25", Status: models.IssueStatusSent},
		{ID: "issue-2026-08-26", Date: "2026-08-26", Status: models.IssueStatusSent},
		{ID: "issue-2026-08-27", Date: "2026-08-27", Status: models.IssueStatusPending},
	}
	for i := range issues {
		if err := st.SaveIssue(ctx, &issues[i]); err != nil {
			t.Fatalf("SaveIssue(%s): %v", issues[i].Date, err)
		}
	}

	sent, err := st.LatestIssueByStatus(ctx, models.IssueStatusSent)
	if err != nil {
		t.Fatalf("LatestIssueByStatus(sent): %v", err)
	}
	if sent.Date != "2026-08-26" {
		t.Errorf("latest sent = %s, want 2026-08-26 (not the newer pending issue)", sent.Date)
	}

	pending, err := st.LatestIssueByStatus(ctx, models.IssueStatusPending)
	if err != nil {
		t.Fatalf("LatestIssueByStatus(pending): %v", err)
	}
	if pending.Date != "2026-08-27" {
		t.Errorf("latest pending = %s, want 2026-08-27", pending.Date)
	}

	if _, err := st.LatestIssueByStatus(ctx, models.IssueStatus("draft")); err == nil {
		t.Error("expected error for unknown status, got nil")
	}
}

func TestUpdateIssueStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	issue := &models.Issue{ID: "issue-2026-08-28", Date: "2026-08-28", Status: models.IssueStatusPending}
	if err := st.SaveIssue(ctx, issue); err != nil {
		t.Fatalf("SaveIssue: %v", err)
	}

	if err := st.UpdateIssueStatus(ctx, "2026-08-28", models.IssueStatusSent); err != nil {
		t.Fatalf("UpdateIssueStatus: %v", err)
	}

	got, err := st.GetIssue(ctx, "2026-08-28")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Status != models.IssueStatusSent {
		t.Errorf("status = %s, want sent", got.Status)
	}

	if err := st.UpdateIssueStatus(ctx, "2026-08-29", models.IssueStatusSent); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing issue: err = %v, want ErrNotFound", err)
	}
}

func TestSourceCredibility(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	// Missing table is not an error.
	scores, err := st.SourceCredibility(ctx)
	if err != nil {
		t.Fatalf("SourceCredibility without table: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected empty table, got %v", scores)
	}

	if err := os.WriteFile(filepath.Join(dir, "sources.json"), []byte(`{"reuters": 0.9}`), 0644); err != nil {
		t.Fatalf("write sources.json: %v", err)
	}
	scores, err = st.SourceCredibility(ctx)
	if err != nil {
		t.Fatalf("SourceCredibility: %v", err)
	}
	if scores["reuters"] != 0.9 {
		t.Errorf("reuters score = %v, want 0.9", scores["reuters"])
	}
}

func TestFileKeySanitizesIDs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	item := candidate("feed/2026:08?28#1", "wire", "", now.Add(-time.Hour))
	if err := st.SaveCandidate(ctx, item); err != nil {
		t.Fatalf("SaveCandidate: %v", err)
	}

	got, err := st.GetCandidate(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if got.ID != item.ID {
		t.Errorf("round-tripped ID = %q, want %q", got.ID, item.ID)
	}
}
