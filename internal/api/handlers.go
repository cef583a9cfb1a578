package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/briefwire/curator/internal/classifier"
	"github.com/briefwire/curator/internal/config"
	"github.com/briefwire/curator/internal/logger"
	"github.com/briefwire/curator/internal/models"
	"github.com/briefwire/curator/internal/selection"
	"github.com/briefwire/curator/internal/store"
)

const dateLayout = "2006-01-02"

type Handlers struct {
	config       *config.Config
	store        *store.FileStore
	orchestrator *selection.Orchestrator
	classifier   *classifier.Classifier
	validate     *validator.Validate
}

func NewHandlers(cfg *config.Config, st *store.FileStore, orch *selection.Orchestrator, cls *classifier.Classifier) *Handlers {
	return &Handlers{
		config:       cfg,
		store:        st,
		orchestrator: orch,
		classifier:   cls,
		validate:     validator.New(),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// GetLatestIssue handles GET /api/v1/issues/latest?status=pending|sent.
// The status parameter is mandatory: "latest issue" without a status
// predicate is exactly the ambiguity this service refuses to reproduce.
func (h *Handlers) GetLatestIssue(c *fiber.Ctx) error {
	status := models.IssueStatus(c.Query("status"))
	if status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status query parameter is required (pending or sent)",
		})
	}
	if !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("unknown status %q", status),
		})
	}

	issue, err := h.store.LatestIssueByStatus(c.Context(), status)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("no issue with status %q", status),
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error loading latest issue")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load issue",
		})
	}

	return c.JSON(issue)
}

// GetIssueByDate handles GET /api/v1/issues/:date
func (h *Handlers) GetIssueByDate(c *fiber.Ctx) error {
	date, err := parseDate(c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	issue, err := h.store.GetIssue(c.Context(), date)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Issue not found",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("date", date).Msg("Error loading issue")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load issue",
		})
	}

	return c.JSON(issue)
}

// GetSlotPicks handles GET /api/v1/issues/:date/picks. Picks are committed
// per slot, so this also shows what a partial run left behind.
func (h *Handlers) GetSlotPicks(c *fiber.Ctx) error {
	date, err := parseDate(c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	picks, err := h.store.SlotPicks(c.Context(), date)
	if err != nil {
		logger.Get().Error().Err(err).Str("date", date).Msg("Error loading slot picks")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load slot picks",
		})
	}

	return c.JSON(fiber.Map{
		"date":  date,
		"picks": picks,
	})
}

// UpdateIssueStatus handles PATCH /api/v1/issues/:date/status — the
// handoff used by the downstream delivery collaborators.
func (h *Handlers) UpdateIssueStatus(c *fiber.Ctx) error {
	date, err := parseDate(c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req struct {
		Status models.IssueStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if !req.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("unknown status %q", req.Status),
		})
	}

	if err := h.store.UpdateIssueStatus(c.Context(), date, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Issue not found",
			})
		}
		logger.Get().Error().Err(err).Str("date", date).Msg("Error updating issue status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update issue status",
		})
	}

	return c.JSON(fiber.Map{
		"date":   date,
		"status": req.Status,
	})
}

// TriggerRun handles POST /api/v1/admin/run: one selection run for the
// given (default: today's) date, run synchronously so the scheduler gets
// the report back.
func (h *Handlers) TriggerRun(c *fiber.Ctx) error {
	var req struct {
		Date   string `json:"date"`
		DryRun bool   `json:"dry_run"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body: " + err.Error(),
			})
		}
	}

	date := req.Date
	if date == "" {
		date = time.Now().Format(dateLayout)
	} else {
		var err error
		if date, err = parseDate(date); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := h.orchestrator.Run(ctx, date, req.DryRun)
	if err != nil {
		logger.Get().Error().Err(err).Str("date", date).Msg("Selection run failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Selection run failed: " + err.Error(),
		})
	}

	status := fiber.StatusOK
	if report.Outcome == models.RunRejected {
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(report)
}

// TriggerClassify handles POST /api/v1/admin/classify. Classification
// covers many oracle batches, so it runs in the background like the
// long-running jobs elsewhere in this service.
func (h *Handlers) TriggerClassify(c *fiber.Ctx) error {
	var req struct {
		Force bool `json:"force"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body: " + err.Error(),
			})
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		result, err := h.classifier.Run(ctx, time.Now(), req.Force)
		if err != nil {
			logger.Get().Error().Err(err).Msg("Classification run failed")
			return
		}
		logger.Get().Info().
			Int("scanned", result.Scanned).
			Int("records", result.Records).
			Msg("Background classification finished")
	}()

	return c.JSON(fiber.Map{
		"status": "started",
		"force":  req.Force,
	})
}

// IngestCandidates handles POST /api/v1/admin/candidates — the handoff
// from the external ingestion collaborator.
func (h *Handlers) IngestCandidates(c *fiber.Ctx) error {
	var req struct {
		Items []models.CandidateItem `json:"items"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No candidate items provided",
		})
	}

	for i, item := range req.Items {
		if err := h.validate.Struct(item); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": fmt.Sprintf("item %d invalid: %v", i, err),
			})
		}
	}

	saved := 0
	for _, item := range req.Items {
		if err := h.store.SaveCandidate(c.Context(), item); err != nil {
			logger.Get().Error().Err(err).Str("item_id", item.ID).Msg("Error saving candidate")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to save candidates",
				"saved": saved,
			})
		}
		saved++
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"saved":  saved,
	})
}

func parseDate(raw string) (string, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t.Format(dateLayout), nil
}
