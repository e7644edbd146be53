package port

import "context"

// TaskSink receives finished task payloads from the intake pipeline.
type TaskSink interface {
	// CreateTask creates a task and returns its ID.
	CreateTask(ctx context.Context, title, description string) (string, error)

	// AddComment attaches an enrichment comment to a task and returns the
	// comment ID.
	AddComment(ctx context.Context, taskID, content string) (string, error)
}
