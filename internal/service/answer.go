package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/port"
)

// escalationNotice is the fixed response when retrieval confidence is
// insufficient. Escalation is a successful outcome of the gate, not an
// error.
const escalationNotice = "I don't have enough information in the approved SOPs to answer confidently. Please escalate to the Chief of Staff."

const synthesisSystemPrompt = "You are an internal policy assistant for a family office. " +
	"You MUST answer ONLY using the provided SOP excerpts. " +
	"If the SOP does not contain the answer, say you don't know and request escalation. " +
	"Keep answers short, operational, and compliance-focused."

// AnswerService runs retrieval, gates on confidence and, only on a pass,
// synthesizes an answer constrained to the retrieved excerpts.
type AnswerService struct {
	retrieval *RetrievalService
	gate      *ConfidenceGate
	provider  port.AIProvider
	timeout   time.Duration
}

// NewAnswerService creates an answer service. timeout bounds the synthesis
// call.
func NewAnswerService(retrieval *RetrievalService, gate *ConfidenceGate, provider port.AIProvider, timeout time.Duration) *AnswerService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnswerService{retrieval: retrieval, gate: gate, provider: provider, timeout: timeout}
}

// Answer retrieves, gates and answers. On escalation no generation call is
// made; a failed generation call surfaces as ErrSynthesis and is never
// reinterpreted as an escalation.
func (s *AnswerService) Answer(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	result, err := s.retrieval.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	decision := s.gate.Decide(result)
	if decision.Escalate {
		slog.Info("rag answer escalated", "confidence", decision.Confidence, "matches", len(result.Matches))
		return &domain.Answer{
			Escalation:      escalationNotice,
			Citations:       decision.Citations,
			Confidence:      decision.Confidence,
			NeedsEscalation: true,
		}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.provider.Generate(callCtx, synthesisSystemPrompt, buildUserPrompt(question, result.Matches))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", port.ErrSynthesis, err)
	}

	var structured domain.StructuredAnswer
	if err := json.Unmarshal([]byte(raw), &structured); err != nil {
		return nil, fmt.Errorf("%w: response is not the requested JSON shape: %v", port.ErrSynthesis, err)
	}

	slog.Info("rag answer", "confidence", decision.Confidence, "model", s.provider.ModelName())
	return &domain.Answer{
		Result:          &structured,
		Citations:       decision.Citations,
		Confidence:      decision.Confidence,
		NeedsEscalation: false,
	}, nil
}

// buildUserPrompt lays out the question, the approved excerpts and the
// structured-output directive.
func buildUserPrompt(question string, matches []domain.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Approved SOP excerpts:\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "[%s | chunk %d | score %.3f]\n%s\n\n", m.SourceName, m.SequenceIndex, m.Score, m.Text)
	}
	b.WriteString("Return JSON with keys: answer, next_steps (array), risk_flags (array), used_chunks (array of {source, chunk}).")
	return b.String()
}
