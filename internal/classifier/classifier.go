// Package classifier tags candidate items with the slots they may fill.
// Items are judged in concurrent batches; every outcome that is not a
// positive, well-formed oracle verdict leaves the item out (fail open to
// exclusion, never to inclusion).
package classifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/briefwire/curator/internal/cache"
	"github.com/briefwire/curator/internal/logger"
	"github.com/briefwire/curator/internal/models"
	"github.com/briefwire/curator/internal/oracle"
	"github.com/briefwire/curator/internal/slots"
	"github.com/briefwire/curator/internal/store"
	"github.com/briefwire/curator/internal/utils"
)

// defaultCredibility is used for sources missing from the credibility table.
const defaultCredibility = 0.5

// Store is the slice of the record store the classifier needs.
type Store interface {
	CandidatesPublishedAfter(ctx context.Context, cutoff time.Time) ([]models.CandidateItem, error)
	SourceCredibility(ctx context.Context) (map[string]float64, error)
	UpsertEligibility(ctx context.Context, rec models.EligibilityRecord) error
	LatestIssueByStatus(ctx context.Context, status models.IssueStatus) (*models.Issue, error)
}

// Options bound the classifier's batching and marker behavior.
type Options struct {
	BatchSize      int
	MaxConcurrency int
	MarkerTTL      time.Duration
}

// Result summarizes one classification pass.
type Result struct {
	Scanned       int `json:"scanned"`
	Skipped       int `json:"skipped"`
	Records       int `json:"records"`
	FailedBatches int `json:"failed_batches"`
}

type Classifier struct {
	store  Store
	oracle oracle.Classifier
	cache  cache.Cache
	opts   Options
}

func New(st Store, or oracle.Classifier, ca cache.Cache, opts Options) *Classifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 5
	}
	return &Classifier{store: st, oracle: or, cache: ca, opts: opts}
}

// Run classifies every candidate young enough for at least one slot.
// Items marked as recently classified are skipped unless force is set;
// a forced re-run replaces existing records instead of duplicating them.
func (c *Classifier) Run(ctx context.Context, now time.Time, force bool) (*Result, error) {
	log := logger.Get()
	start := time.Now()

	cutoff := now.Add(-maxWindow())
	items, err := c.store.CandidatesPublishedAfter(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	res := &Result{Scanned: len(items)}

	var fresh []models.CandidateItem
	for _, item := range items {
		if !force {
			marked, err := c.cache.IsClassified(ctx, utils.Hash(item.ID))
			if err != nil {
				log.Error().Err(err).Str("item_id", item.ID).Msg("Error checking classified marker")
			} else if marked {
				res.Skipped++
				continue
			}
		}
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 {
		log.Info().Int("scanned", res.Scanned).Msg("No unclassified candidates")
		return res, nil
	}

	credibility, err := c.store.SourceCredibility(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error loading source credibility, using defaults")
		credibility = map[string]float64{}
	}

	recent := c.recentHeadlines(ctx)

	log.Info().
		Int("candidates", len(fresh)).
		Int("batch_size", c.opts.BatchSize).
		Msg("Starting classification")

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, c.opts.MaxConcurrency)
	)

	for _, batch := range chunk(fresh, c.opts.BatchSize) {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case semaphore <- struct{}{}:
		}

		batch := batch
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()

			records, ok := c.classifyBatch(ctx, batch, credibility, recent, now)

			mu.Lock()
			res.Records += records
			if !ok {
				res.FailedBatches++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	log.Info().
		Int("scanned", res.Scanned).
		Int("skipped", res.Skipped).
		Int("records", res.Records).
		Int("failed_batches", res.FailedBatches).
		Dur("duration", time.Since(start)).
		Msg("Finished classification")

	return res, nil
}

// classifyBatch runs one oracle call and commits the resulting records.
// Oracle failure makes the whole batch ineligible; it is never fatal.
func (c *Classifier) classifyBatch(ctx context.Context, batch []models.CandidateItem, credibility map[string]float64, recent []string, now time.Time) (int, bool) {
	log := logger.Get()

	byID := make(map[string]models.CandidateItem, len(batch))
	req := oracle.ClassifyRequest{RecentHeadlines: recent}
	for _, item := range batch {
		byID[item.ID] = item
		req.Items = append(req.Items, summarize(item, credibility))
	}

	resp, err := c.oracle.ClassifySlots(ctx, req)
	if err != nil {
		log.Warn().
			Err(err).
			Int("batch_size", len(batch)).
			Msg("Classification batch failed, treating as no eligible slots")
		return 0, false
	}

	records := 0
	for _, verdict := range resp.Verdicts {
		item, known := byID[verdict.ItemID]
		if !known {
			log.Warn().Str("item_id", verdict.ItemID).Msg("Oracle returned an unknown item id, ignoring")
			continue
		}
		for _, slot := range verdict.Slots {
			if !slots.Valid(slot) {
				log.Warn().Int("slot", slot).Str("item_id", item.ID).Msg("Oracle returned an invalid slot, ignoring")
				continue
			}
			// Age is measured at classification time; a late-running
			// selection does not retroactively disqualify the record.
			if !slots.Eligible(item.Age(now), slot) {
				continue
			}
			rec := models.EligibilityRecord{
				ItemID:       item.ID,
				Slot:         slot,
				ClassifiedAt: now,
				Reasoning:    verdict.Reasoning,
			}
			if err := c.store.UpsertEligibility(ctx, rec); err != nil {
				log.Error().Err(err).Str("item_id", item.ID).Int("slot", slot).Msg("Error writing eligibility record")
				continue
			}
			records++
		}
	}

	for _, item := range batch {
		if err := c.cache.MarkClassified(ctx, utils.Hash(item.ID), c.opts.MarkerTTL); err != nil {
			log.Error().Err(err).Str("item_id", item.ID).Msg("Error marking item classified")
		}
	}

	return records, true
}

func (c *Classifier) recentHeadlines(ctx context.Context) []string {
	issue, err := c.store.LatestIssueByStatus(ctx, models.IssueStatusSent)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error loading recent headlines")
		return nil
	}
	headlines := make([]string, 0, len(issue.Picks))
	for _, pick := range issue.Picks {
		headlines = append(headlines, pick.Headline)
	}
	return headlines
}

func summarize(item models.CandidateItem, credibility map[string]float64) oracle.CandidateSummary {
	score, ok := credibility[item.SourceID]
	if !ok {
		score = defaultCredibility
	}
	return oracle.CandidateSummary{
		ID:          item.ID,
		Headline:    item.Headline,
		SourceID:    item.SourceID,
		Company:     item.Company,
		PublishedAt: item.PublishedAt,
		Credibility: score,
	}
}

func chunk(items []models.CandidateItem, size int) [][]models.CandidateItem {
	var out [][]models.CandidateItem
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func maxWindow() time.Duration {
	var max time.Duration
	for _, p := range slots.All() {
		if p.Window > max {
			max = p.Window
		}
	}
	return max
}
