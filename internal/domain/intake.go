package domain

// Task category constants.
const (
	CategoryExpensePurchase = "expense_purchase"
	CategoryGeneralTask     = "general_task"
)

// TaskPayload is the enriched task description handed to the task sink.
type TaskPayload struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	NeedsApproval   bool       `json:"needs_approval"`
	NeedsEscalation bool       `json:"needs_escalation"`
	SOPConfidence   float32    `json:"sop_confidence"`
	SOPCitations    []Citation `json:"sop_citations"`
}

// IntakeResult reports the task and comment created for an intake message.
type IntakeResult struct {
	OK        bool        `json:"ok"`
	TaskID    string      `json:"task_id"`
	CommentID string      `json:"comment_id"`
	Payload   TaskPayload `json:"payload"`
}
