package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Record is one JSONL audit line.
type Record struct {
	TS        time.Time      `json:"ts"`
	RequestID string         `json:"request_id"`
	Event     string         `json:"event"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload"`
	Error     string         `json:"error,omitempty"`
}

// Logger appends audit records to a JSONL file for compliance review. Audit
// failures are logged but never fail the request that triggered them.
type Logger struct {
	mu   sync.Mutex
	path string
}

// NewLogger creates an audit logger writing to path.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Log writes an ok record.
func (l *Logger) Log(requestID, event string, payload map[string]any) {
	l.write(Record{RequestID: requestID, Event: event, Status: "ok", Payload: payload})
}

// LogError writes an error record.
func (l *Logger) LogError(requestID, event string, payload map[string]any, err error) {
	rec := Record{RequestID: requestID, Event: event, Status: "error", Payload: payload}
	if err != nil {
		rec.Error = err.Error()
	}
	l.write(rec)
}

func (l *Logger) write(rec Record) {
	rec.TS = time.Now().UTC()
	if rec.Payload == nil {
		rec.Payload = map[string]any{}
	}
	line, err := json.Marshal(rec)
	if err != nil {
		slog.Error("encode audit record", "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("open audit log", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Error("write audit log", "error", err)
	}
}
