package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"slot": 1}`, `{"slot": 1}`},
		{"json fence", "```json\n{\"slot\": 1}\n```", `{"slot": 1}`},
		{"bare fence", "```\n{\"slot\": 1}\n```", `{"slot": 1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n  ", `{}`},
		{"no closing fence", "```json\n{}", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.input); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSelection(t *testing.T) {
	sel, err := parseSelection("```json\n{\"item_id\": \"item-1\", \"headline\": \"Big news\", \"company\": \"Acme\", \"reasoning\": \"strongest fit\"}\n```")
	if err != nil {
		t.Fatalf("parseSelection: %v", err)
	}
	if sel.ItemID != "item-1" || sel.Company != "Acme" {
		t.Errorf("unexpected selection: %+v", sel)
	}

	if _, err := parseSelection("I would pick item-1 because it is the best."); err == nil {
		t.Error("prose answer must be a parse error, not a selection")
	}
}

// fakeGemini serves canned generateContent responses.
func fakeGemini(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		body := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
}

func newTestClient(baseURL string) *GeminiClient {
	return NewGeminiClient("test-key", "test-model", ClientOptions{
		Timeout: 5 * time.Second,
		BaseURL: baseURL,
	})
}

func TestClassifySlotsRoundTrip(t *testing.T) {
	srv := fakeGemini(t, "```json\n{\"verdicts\": [{\"item_id\": \"item-1\", \"slots\": [1, 3], \"reasoning\": \"breaking and analytical\"}]}\n```")
	defer srv.Close()

	resp, err := newTestClient(srv.URL).ClassifySlots(context.Background(), ClassifyRequest{
		Items: []CandidateSummary{{ID: "item-1", Headline: "Big news", SourceID: "wire"}},
	})
	if err != nil {
		t.Fatalf("ClassifySlots: %v", err)
	}
	if len(resp.Verdicts) != 1 || resp.Verdicts[0].ItemID != "item-1" {
		t.Fatalf("unexpected verdicts: %+v", resp.Verdicts)
	}
	if len(resp.Verdicts[0].Slots) != 2 {
		t.Errorf("slots = %v, want [1 3]", resp.Verdicts[0].Slots)
	}
}

func TestClassifySlotsMalformedResponse(t *testing.T) {
	srv := fakeGemini(t, "Sure! Here are my thoughts on each item...")
	defer srv.Close()

	if _, err := newTestClient(srv.URL).ClassifySlots(context.Background(), ClassifyRequest{
		Items: []CandidateSummary{{ID: "item-1"}},
	}); err == nil {
		t.Fatal("prose response must be an error")
	}
}

func TestSelectWinnerRejectsIncomplete(t *testing.T) {
	// Valid JSON, but the item id is missing.
	srv := fakeGemini(t, `{"headline": "Big news", "reasoning": "fits"}`)
	defer srv.Close()

	if _, err := newTestClient(srv.URL).SelectWinner(context.Background(), SelectRequest{Slot: 1}); err == nil {
		t.Fatal("selection without an item id must be rejected")
	}
}

func TestSubjectLineKeepsFirstLineOnly(t *testing.T) {
	srv := fakeGemini(t, "AI shake-up: five stories you missed\n\nI chose this subject because it is punchy.")
	defer srv.Close()

	line, err := newTestClient(srv.URL).SubjectLine(context.Background(), SubjectRequest{
		Headlines: []string{"Big news"},
	})
	if err != nil {
		t.Fatalf("SubjectLine: %v", err)
	}
	if line != "AI shake-up: five stories you missed" {
		t.Errorf("subject = %q, want first line only", line)
	}
	if strings.Contains(line, "\n") {
		t.Errorf("subject contains a newline: %q", line)
	}
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SubjectLine(context.Background(), SubjectRequest{})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want the API error message surfaced", err)
	}
}
