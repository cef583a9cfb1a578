package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

const classifyTemplate = `You are the eligibility desk of a daily AI-industry briefing with five fixed slots:

1. Macro impact: jobs, economy, markets.
2. Tier-1 organizations and notable research.
3. Named industry verticals (healthcare, legal, finance, manufacturing).
4. Emerging organizations, funding rounds, product launches.
5. Consumer applications, human interest, ethics.

For each candidate below, decide which slots (possibly none, possibly several) its topic fits. Judge topic only; freshness is handled elsewhere. Avoid items that merely rehash the recent headlines listed.

Respond with a single JSON object:
{"verdicts": [{"item_id": "...", "slots": [1, 4], "reasoning": "..."}]}

Omit items that fit no slot, or give them an empty slots array.

Recent headlines:
%s

Candidates:
%s`

const selectTemplate = `You are the slot editor of a daily AI-industry briefing. Pick exactly one winner for slot %d (%s).

Slot focus: %s.

Hard rules, all already reflected in the candidate list you should honor:
- Never pick an item id in exclude_item_ids.
- Never pick a company in exclude_companies.
- Never pick an item from a source in exhausted_sources.
%s- Prefer stories that do not retread yesterday's headlines.

Constraints:
%s

Candidates:
%s

Respond with a single JSON object:
{"item_id": "...", "headline": "...", "company": "...", "reasoning": "..."}

Use the candidate's exact item_id. Set company to the primary organization in the story, or omit it when there is none.`

const subjectTemplate = `You write subject lines for a daily AI-industry briefing. Write one subject line, at most %d characters, energetic but not clickbait, covering today's five stories:

%s

Respond with the subject line only, no quotes, no commentary.`

func buildClassifyPrompt(req ClassifyRequest) (string, error) {
	candidates, err := json.MarshalIndent(req.Items, "", "  ")
	if err != nil {
		return "", err
	}
	headlines := "(none)"
	if len(req.RecentHeadlines) > 0 {
		headlines = "- " + strings.Join(req.RecentHeadlines, "\n- ")
	}
	return fmt.Sprintf(classifyTemplate, headlines, candidates), nil
}

func buildSelectPrompt(req SelectRequest) (string, error) {
	candidates, err := json.MarshalIndent(req.Candidates, "", "  ")
	if err != nil {
		return "", err
	}
	constraints, err := json.MarshalIndent(req.Constraints, "", "  ")
	if err != nil {
		return "", err
	}

	rotation := ""
	if req.Slot == 1 && req.Constraints.YesterdaySlot1Company != "" {
		rotation = fmt.Sprintf("- Slot 1 rotates companies day over day: never pick %q, yesterday's slot-1 company.\n", req.Constraints.YesterdaySlot1Company)
	}

	return fmt.Sprintf(selectTemplate, req.Slot, req.Focus, req.Guidance, rotation, constraints, candidates), nil
}

func buildSubjectPrompt(req SubjectRequest) string {
	return fmt.Sprintf(subjectTemplate, req.MaxLength, "- "+strings.Join(req.Headlines, "\n- "))
}
