package analysis

import "context"

// Message is one utterance of the conversation under analysis.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Finding is a single red flag located in the conversation.
type Finding struct {
	Category string `json:"category"`
	Severity string `json:"severity"` // low | medium | high
	Quote    string `json:"quote"`
	Reason   string `json:"reason"`
}

// Result is the structured outcome of a red-flag analysis.
type Result struct {
	Score    float64   `json:"score"` // 0 (benign) .. 10 (run)
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
}

// Provider scores a conversation for red flags. category narrows the rubric
// (dating, jobs, housing, marketplace, ...).
type Provider interface {
	Analyze(ctx context.Context, category string, messages []Message) (*Result, error)
}
