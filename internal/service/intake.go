package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/port"
)

// expenseKeywords route a message to the expense/purchase category.
var expenseKeywords = []string{
	"buy", "purchase", "invoice", "card", "pay", "subscription",
	"laptop", "phone", "tablet", "amazon",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Classify routes a raw message to a task category by keyword lookup and
// reports whether the category requires approval.
func Classify(message string) (category string, needsApproval bool) {
	m := strings.ToLower(message)
	for _, k := range expenseKeywords {
		if strings.Contains(m, k) {
			return domain.CategoryExpensePurchase, true
		}
	}
	return domain.CategoryGeneralTask, false
}

// MakeTitle collapses whitespace and trims the message to a task-sized
// title.
func MakeTitle(message string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(message, " "))
	if len(cleaned) > 70 {
		return cleaned[:70] + "..."
	}
	return cleaned
}

// IntakeService turns a raw request message into a tracked task. Expense
// requests are enriched with SOP guidance from the answer pipeline; a low
// SOP signal marks the task for escalation instead of guessing.
type IntakeService struct {
	answers   *AnswerService
	sink      port.TaskSink
	topK      int
	checklist string
}

// NewIntakeService creates an intake pipeline. checklist, when non-empty, is
// appended verbatim to expense task comments.
func NewIntakeService(answers *AnswerService, sink port.TaskSink, topK int, checklist string) *IntakeService {
	if topK <= 0 {
		topK = 4
	}
	return &IntakeService{answers: answers, sink: sink, topK: topK, checklist: checklist}
}

// Intake classifies the message, enriches expense requests with SOP
// guidance, creates the task and attaches the enrichment comment.
func (s *IntakeService) Intake(ctx context.Context, channel, message string) (*domain.IntakeResult, error) {
	category, needsApproval := Classify(message)

	payload := domain.TaskPayload{
		Title:         MakeTitle(message),
		Description:   fmt.Sprintf("Channel: %s\nRaw request: %s", channel, message),
		Category:      category,
		Priority:      "high",
		NeedsApproval: needsApproval,
		SOPCitations:  []domain.Citation{},
	}

	var guidance *domain.Answer
	if category == domain.CategoryExpensePurchase {
		answer, err := s.answers.Answer(ctx, message, s.topK)
		if err != nil {
			return nil, fmt.Errorf("sop enrichment: %w", err)
		}
		guidance = answer
		payload.NeedsEscalation = answer.NeedsEscalation
		payload.SOPConfidence = answer.Confidence
		payload.SOPCitations = answer.Citations
	}

	taskID, err := s.sink.CreateTask(ctx, payload.Title, payload.Description)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	commentID, err := s.sink.AddComment(ctx, taskID, s.buildComment(payload, guidance))
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	slog.Info("intake task created",
		"category", payload.Category,
		"needs_approval", payload.NeedsApproval,
		"needs_escalation", payload.NeedsEscalation,
		"task_id", taskID,
	)
	return &domain.IntakeResult{OK: true, TaskID: taskID, CommentID: commentID, Payload: payload}, nil
}

func (s *IntakeService) buildComment(payload domain.TaskPayload, guidance *domain.Answer) string {
	parts := []string{
		"Auto-enrichment:",
		fmt.Sprintf("- Category: %s", payload.Category),
		fmt.Sprintf("- Priority: %s", payload.Priority),
		fmt.Sprintf("- Needs approval: %t", payload.NeedsApproval),
		fmt.Sprintf("- SOP confidence: %.2f", payload.SOPConfidence),
	}

	if guidance != nil {
		if s.checklist != "" {
			parts = append(parts, "", s.checklist)
		}

		summary := guidance.Escalation
		if guidance.Result != nil {
			summary = guidance.Result.Answer
		}
		parts = append(parts, "SOP guidance:", summary, "", "Citations:")
		for _, c := range payload.SOPCitations {
			parts = append(parts, fmt.Sprintf("- %s | chunk %d | score %.3f", c.SourceName, c.SequenceIndex, c.Score))
		}

		if payload.NeedsEscalation {
			parts = append(parts, "", "Escalation required: SOP signal is low or the SOP does not cover this request confidently.")
		}
	}

	return strings.Join(parts, "\n")
}
