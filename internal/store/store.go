// Package store persists the curator's three collections as JSON files,
// one file per natural key. Writing a key overwrites the previous file,
// which is exactly the upsert discipline the eligibility records need.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/briefwire/curator/internal/models"
)

// ErrNotFound is returned when a keyed read matches nothing.
var ErrNotFound = errors.New("record not found")

// EligibleCandidate joins an eligibility record with its candidate item,
// the shape the orchestrator consumes.
type EligibleCandidate struct {
	Item   models.CandidateItem
	Record models.EligibilityRecord
}

type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

func NewFileStore(basePath string) (*FileStore, error) {
	for _, dir := range []string{"candidates", "eligibility", "issues", "runs"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileStore{basePath: basePath}, nil
}

// SaveCandidate writes a candidate item. Candidates are produced by the
// external ingestion collaborator; the curator itself only reads them.
func (s *FileStore) SaveCandidate(ctx context.Context, item models.CandidateItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.basePath, "candidates", fileKey(item.ID)), item)
}

// GetCandidate retrieves a candidate item by ID.
func (s *FileStore) GetCandidate(ctx context.Context, id string) (*models.CandidateItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var item models.CandidateItem
	if err := readJSON(filepath.Join(s.basePath, "candidates", fileKey(id)), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CandidatesPublishedAfter returns candidates with PublishedAt strictly
// after the cutoff, newest first.
func (s *FileStore) CandidatesPublishedAfter(ctx context.Context, cutoff time.Time) ([]models.CandidateItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.CandidateItem
	err := eachJSON(filepath.Join(s.basePath, "candidates"), func(path string) error {
		var item models.CandidateItem
		if err := readJSON(path, &item); err != nil {
			return err
		}
		if item.PublishedAt.After(cutoff) {
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	return items, nil
}

// SourceCredibility loads the per-source credibility table. A missing
// table is not an error; callers fall back to a default score.
func (s *FileStore) SourceCredibility(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[string]float64)
	err := readJSON(filepath.Join(s.basePath, "sources.json"), &scores)
	if errors.Is(err, ErrNotFound) {
		return scores, nil
	}
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// UpsertEligibility writes an eligibility record keyed by (item, slot).
// A later classification of the same pair replaces the earlier record.
func (s *FileStore) UpsertEligibility(ctx context.Context, rec models.EligibilityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, "eligibility", fmt.Sprintf("slot%d", rec.Slot))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create eligibility directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, fileKey(rec.ItemID)), rec)
}

// EligibilityForSlot returns all records currently held for a slot.
func (s *FileStore) EligibilityForSlot(ctx context.Context, slot int) ([]models.EligibilityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []models.EligibilityRecord
	dir := filepath.Join(s.basePath, "eligibility", fmt.Sprintf("slot%d", slot))
	err := eachJSON(dir, func(path string) error {
		var rec models.EligibilityRecord
		if err := readJSON(path, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// EligibleForSlot joins a slot's eligibility records with their candidate
// items, keeping only items published after the cutoff. Records whose
// candidate has vanished are skipped rather than failing the query.
func (s *FileStore) EligibleForSlot(ctx context.Context, slot int, publishedAfter time.Time) ([]EligibleCandidate, error) {
	recs, err := s.EligibilityForSlot(ctx, slot)
	if err != nil {
		return nil, err
	}

	var out []EligibleCandidate
	for _, rec := range recs {
		item, err := s.GetCandidate(ctx, rec.ItemID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if item.PublishedAt.After(publishedAfter) {
			out = append(out, EligibleCandidate{Item: *item, Record: rec})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Item.PublishedAt.After(out[j].Item.PublishedAt)
	})
	return out, nil
}

// SaveSlotPick durably commits one slot's winner for a run date. Each pick
// is its own file so a later failure cannot take earlier picks with it.
func (s *FileStore) SaveSlotPick(ctx context.Context, date string, pick models.SlotPick) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, "runs", date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, fmt.Sprintf("slot%d.json", pick.Slot)), pick)
}

// SlotPicks returns the picks committed so far for a run date, in slot order.
func (s *FileStore) SlotPicks(ctx context.Context, date string) ([]models.SlotPick, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var picks []models.SlotPick
	err := eachJSON(filepath.Join(s.basePath, "runs", date), func(path string) error {
		var pick models.SlotPick
		if err := readJSON(path, &pick); err != nil {
			return err
		}
		picks = append(picks, pick)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(picks, func(i, j int) bool { return picks[i].Slot < picks[j].Slot })
	return picks, nil
}

// SaveIssue persists an assembled issue keyed by its date.
func (s *FileStore) SaveIssue(ctx context.Context, issue *models.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.basePath, "issues", issue.Date+".json"), issue)
}

// GetIssue retrieves the issue for a date.
func (s *FileStore) GetIssue(ctx context.Context, date string) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issue models.Issue
	if err := readJSON(filepath.Join(s.basePath, "issues", date+".json"), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// LatestIssueByStatus returns the most recent issue carrying exactly the
// given status. The status argument is mandatory: "latest issue" with no
// status predicate is ambiguous and has caused real bugs.
func (s *FileStore) LatestIssueByStatus(ctx context.Context, status models.IssueStatus) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid issue status %q", status)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Issue
	err := eachJSON(filepath.Join(s.basePath, "issues"), func(path string) error {
		var issue models.Issue
		if err := readJSON(path, &issue); err != nil {
			return err
		}
		if issue.Status != status {
			return nil
		}
		if latest == nil || issue.Date > latest.Date {
			cp := issue
			latest = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// UpdateIssueStatus is the downstream handoff: decoration and delivery
// collaborators move an issue from pending to sent through here.
func (s *FileStore) UpdateIssueStatus(ctx context.Context, date string, status models.IssueStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid issue status %q", status)
	}
	issue, err := s.GetIssue(ctx, date)
	if err != nil {
		return err
	}
	issue.Status = status

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.basePath, "issues", date+".json"), issue)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record %s: %w", filepath.Base(path), err)
	}
	return nil
}

func eachJSON(dir string, fn func(path string) error) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := fn(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// fileKey maps a record ID to a safe file name.
func fileKey(id string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	return mapped + ".json"
}
