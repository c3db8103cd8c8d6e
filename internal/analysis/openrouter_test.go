package analysis

import "testing"

func TestParseResult(t *testing.T) {
	payload := `{"score": 6.5, "summary": "pushy", "findings": [{"category": "pressure", "severity": "medium", "quote": "act now", "reason": "urgency"}]}`

	r, err := parseResult(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Score != 6.5 || r.Summary != "pushy" || len(r.Findings) != 1 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestParseResult_StripsCodeFence(t *testing.T) {
	payload := "```json\n{\"score\": 2, \"summary\": \"fine\", \"findings\": []}\n```"

	r, err := parseResult(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Score != 2 || r.Summary != "fine" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestParseResult_ClampsScore(t *testing.T) {
	r, err := parseResult(`{"score": 99, "summary": "x", "findings": []}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Score != 10 {
		t.Fatalf("expected score clamped to 10, got %v", r.Score)
	}
}

func TestParseResult_RejectsProse(t *testing.T) {
	if _, err := parseResult("I think this conversation is fine."); err == nil {
		t.Fatalf("expected error for non-JSON payload")
	}
}
