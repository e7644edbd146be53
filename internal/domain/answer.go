package domain

// Citation ties a retrieved excerpt back to its origin so an operator can
// audit either outcome of the gate.
type Citation struct {
	SourceName    string  `json:"source"`
	SequenceIndex int     `json:"chunk"`
	Score         float32 `json:"score"`
}

// GateDecision is the outcome of the confidence gate. Confidence is the top
// match score clamped to [0,1]; citations cover all returned matches
// regardless of the decision.
type GateDecision struct {
	Confidence float32    `json:"confidence"`
	Escalate   bool       `json:"escalate"`
	Citations  []Citation `json:"citations"`
}

// UsedChunk identifies an excerpt the model claims to have used.
type UsedChunk struct {
	Source string `json:"source"`
	Chunk  int    `json:"chunk"`
}

// StructuredAnswer is the output shape the synthesis model must return.
type StructuredAnswer struct {
	Answer     string      `json:"answer"`
	NextSteps  []string    `json:"next_steps"`
	RiskFlags  []string    `json:"risk_flags"`
	UsedChunks []UsedChunk `json:"used_chunks"`
}

// Answer is the caller-facing outcome of a question: either an escalation
// notice or a synthesized result, never both.
type Answer struct {
	Result          *StructuredAnswer `json:"result,omitempty"`
	Escalation      string            `json:"answer,omitempty"`
	Citations       []Citation        `json:"citations"`
	Confidence      float32           `json:"confidence"`
	NeedsEscalation bool              `json:"needs_escalation"`
}
