// Package selection implements the sequential five-slot selection run:
// Slot1 -> Slot2 -> Slot3 -> Slot4 -> Slot5 -> Assembled, strictly in
// order, with the diversity state threaded from each committed pick into
// the next step.
package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/briefwire/curator/internal/cache"
	"github.com/briefwire/curator/internal/logger"
	"github.com/briefwire/curator/internal/models"
	"github.com/briefwire/curator/internal/oracle"
	"github.com/briefwire/curator/internal/slots"
	"github.com/briefwire/curator/internal/store"
)

// Store is the slice of the record store the orchestrator needs.
type Store interface {
	EligibleForSlot(ctx context.Context, slot int, publishedAfter time.Time) ([]store.EligibleCandidate, error)
	SourceCredibility(ctx context.Context) (map[string]float64, error)
	SaveSlotPick(ctx context.Context, date string, pick models.SlotPick) error
	SlotPicks(ctx context.Context, date string) ([]models.SlotPick, error)
	SaveIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, date string) (*models.Issue, error)
	LatestIssueByStatus(ctx context.Context, status models.IssueStatus) (*models.Issue, error)
}

// Archiver mirrors the assembled issue to the downstream bucket.
type Archiver interface {
	ArchiveIssue(ctx context.Context, issue *models.Issue) error
}

// Options bound the run's persistence retries and the subject length cap.
type Options struct {
	RunClaimTTL      time.Duration
	SubjectMaxLength int
	PersistRetries   int
	PersistBackoff   time.Duration
}

type Orchestrator struct {
	store      Store
	selector   oracle.Selector
	summarizer oracle.Summarizer
	cache      cache.Cache
	archiver   Archiver // optional
	opts       Options

	now func() time.Time
}

func NewOrchestrator(st Store, sel oracle.Selector, sum oracle.Summarizer, ca cache.Cache, ar Archiver, opts Options) *Orchestrator {
	if opts.RunClaimTTL <= 0 {
		opts.RunClaimTTL = 2 * time.Hour
	}
	if opts.SubjectMaxLength <= 0 {
		opts.SubjectMaxLength = 78
	}
	if opts.PersistRetries <= 0 {
		opts.PersistRetries = 3
	}
	if opts.PersistBackoff <= 0 {
		opts.PersistBackoff = 500 * time.Millisecond
	}
	return &Orchestrator{
		store:      st,
		selector:   sel,
		summarizer: sum,
		cache:      ca,
		archiver:   ar,
		opts:       opts,
		now:        time.Now,
	}
}

// Run executes one selection run for the given date (YYYY-MM-DD).
// The returned report carries exactly one of the three outcomes; an error
// is returned only when the run could not even be evaluated.
func (o *Orchestrator) Run(ctx context.Context, date string, dryRun bool) (*models.RunReport, error) {
	log := logger.Get()
	report := &models.RunReport{Date: date, DryRun: dryRun}

	if _, err := o.store.GetIssue(ctx, date); err == nil {
		report.Outcome = models.RunRejected
		report.Reason = "issue already exists for this date"
		return report, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing issue: %w", err)
	}

	if !dryRun {
		acquired, err := o.cache.AcquireRunClaim(ctx, date, o.opts.RunClaimTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run claim: %w", err)
		}
		if !acquired {
			report.Outcome = models.RunRejected
			report.Reason = "skipped — already running"
			return report, nil
		}
		defer func() {
			if err := o.cache.ReleaseRunClaim(ctx, date); err != nil {
				log.Error().Err(err).Str("date", date).Msg("Error releasing run claim")
			}
		}()
	}

	yesterday, err := o.store.LatestIssueByStatus(ctx, models.IssueStatusSent)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load yesterday's issue: %w", err)
	}

	state := NewDiversityState(yesterday)
	now := o.now()

	log.Info().
		Str("date", date).
		Bool("dry_run", dryRun).
		Str("yesterday_slot1_company", state.YesterdaySlot1Company).
		Msg("Starting selection run")

	for slot := 1; slot <= slots.Count; slot++ {
		result, next := o.runSlot(ctx, date, slot, state, now, dryRun)
		report.Slots = append(report.Slots, result)

		if result.Status != models.SlotPicked {
			// Transitions are strictly linear: a failed slot ends the
			// run, and the slots behind it stay committed as they are.
			for unreached := slot + 1; unreached <= slots.Count; unreached++ {
				report.Slots = append(report.Slots, models.SlotResult{
					Slot:   unreached,
					Status: models.SlotNotReached,
				})
			}
			report.Outcome = models.RunPartial
			log.Warn().
				Str("date", date).
				Int("slot", slot).
				Str("error", result.Error).
				Int("filled", report.FilledSlots()).
				Msg("Selection run ended early")
			return report, nil
		}
		state = next
	}

	issue, err := o.assemble(ctx, date, report, now, dryRun)
	if err != nil {
		report.Outcome = models.RunPartial
		report.Reason = fmt.Sprintf("issue assembly failed: %v", err)
		log.Error().Err(err).Str("date", date).Msg("Issue assembly failed after all slots committed")
		return report, nil
	}

	report.Issue = issue
	report.Outcome = models.RunComplete
	log.Info().
		Str("date", date).
		Str("subject", issue.SubjectLine).
		Msg("Selection run complete")
	return report, nil
}

// runSlot executes one selection step. On success the returned state is
// the input state advanced by the committed pick.
func (o *Orchestrator) runSlot(ctx context.Context, date string, slot int, state DiversityState, now time.Time, dryRun bool) (models.SlotResult, DiversityState) {
	log := logger.Get()
	profile := slots.Get(slot)

	failed := func(err error) (models.SlotResult, DiversityState) {
		return models.SlotResult{Slot: slot, Status: models.SlotFailed, Error: err.Error()}, state
	}

	// The slot window is re-measured at selection time: a record written
	// hours ago may cover an item now too old for its slot.
	eligible, err := o.store.EligibleForSlot(ctx, slot, now.Add(-profile.Window))
	if err != nil {
		return failed(fmt.Errorf("load eligible candidates: %w", err))
	}
	if len(eligible) == 0 {
		return failed(errors.New("no eligible candidates"))
	}

	credibility, err := o.store.SourceCredibility(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error loading source credibility, using defaults")
		credibility = map[string]float64{}
	}

	byID := make(map[string]models.CandidateItem, len(eligible))
	req := oracle.SelectRequest{
		Slot:        slot,
		Focus:       profile.Focus,
		Guidance:    profile.Guidance,
		Constraints: state.Constraints(slot),
	}
	for _, ec := range eligible {
		byID[ec.Item.ID] = ec.Item
		score, ok := credibility[ec.Item.SourceID]
		if !ok {
			score = defaultCredibility
		}
		req.Candidates = append(req.Candidates, oracle.CandidateSummary{
			ID:          ec.Item.ID,
			Headline:    ec.Item.Headline,
			SourceID:    ec.Item.SourceID,
			Company:     ec.Item.Company,
			PublishedAt: ec.Item.PublishedAt,
			Credibility: score,
		})
	}

	sel, err := o.selector.SelectWinner(ctx, req)
	if err != nil {
		return failed(fmt.Errorf("selector: %w", err))
	}

	item, known := byID[sel.ItemID]
	if !known {
		return failed(fmt.Errorf("selector returned unknown item %q", sel.ItemID))
	}

	company := sel.Company
	if company == "" {
		company = item.Company
	}
	pick := models.SlotPick{
		Slot:      slot,
		ItemID:    item.ID,
		Headline:  sel.Headline,
		Company:   company,
		SourceID:  item.SourceID,
		Reasoning: sel.Reasoning,
		PickedAt:  now,
	}

	if err := state.Validate(pick); err != nil {
		return failed(fmt.Errorf("invariant violation: %w", err))
	}

	if !dryRun {
		if err := o.persist(ctx, func() error {
			return o.store.SaveSlotPick(ctx, date, pick)
		}); err != nil {
			return failed(fmt.Errorf("commit pick: %w", err))
		}
	}

	log.Info().
		Int("slot", slot).
		Str("item_id", pick.ItemID).
		Str("company", pick.Company).
		Str("source_id", pick.SourceID).
		Msg("Slot committed")

	return models.SlotResult{Slot: slot, Status: models.SlotPicked, Pick: &pick}, state.Advance(pick)
}

// assemble gathers the five committed picks, generates the subject line
// and persists the pending issue.
func (o *Orchestrator) assemble(ctx context.Context, date string, report *models.RunReport, now time.Time, dryRun bool) (*models.Issue, error) {
	log := logger.Get()

	picks := make([]models.SlotPick, 0, slots.Count)
	headlines := make([]string, 0, slots.Count)
	for _, res := range report.Slots {
		picks = append(picks, *res.Pick)
		headlines = append(headlines, res.Pick.Headline)
	}

	subject, err := o.summarizer.SubjectLine(ctx, oracle.SubjectRequest{
		Headlines: headlines,
		MaxLength: o.opts.SubjectMaxLength,
	})
	if err != nil {
		// A dead subject oracle should not throw away five good picks.
		log.Warn().Err(err).Msg("Subject oracle failed, falling back to slot-1 headline")
		subject = headlines[0]
	}

	issue := &models.Issue{
		ID:          "issue-" + date,
		Date:        date,
		SubjectLine: CleanSubject(subject, o.opts.SubjectMaxLength),
		Status:      models.IssueStatusPending,
		Picks:       picks,
		CreatedAt:   now,
	}

	if dryRun {
		return issue, nil
	}

	if err := o.persist(ctx, func() error {
		return o.store.SaveIssue(ctx, issue)
	}); err != nil {
		return nil, err
	}

	if o.archiver != nil {
		if err := o.archiver.ArchiveIssue(ctx, issue); err != nil {
			log.Error().Err(err).Str("date", date).Msg("Error archiving issue")
		}
	}

	return issue, nil
}

// persist retries a store write a bounded number of times with doubling
// backoff before giving up.
func (o *Orchestrator) persist(ctx context.Context, write func() error) error {
	backoff := o.opts.PersistBackoff
	var err error
	for attempt := 1; attempt <= o.opts.PersistRetries; attempt++ {
		if err = write(); err == nil {
			return nil
		}
		if attempt == o.opts.PersistRetries {
			break
		}
		logger.Get().Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Store write failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

const defaultCredibility = 0.5
