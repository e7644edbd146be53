package port

import (
	"errors"

	"github.com/sfohq/sop-assistant/internal/domain"
)

// Sentinel errors used across ports. Callers classify failures with
// errors.Is rather than matching on error text.
var (
	// ErrInvalidConfig marks a fatal configuration problem (missing
	// credentials, overlap >= window size). Never retried. Hosted in
	// domain so index can wrap it without importing port.
	ErrInvalidConfig = domain.ErrInvalidConfig

	// ErrNotIngested is returned when retrieval runs before any snapshot
	// has been published. Distinct from a zero-match result.
	ErrNotIngested = errors.New("no SOP snapshot ingested")

	// ErrRateLimited marks a transient provider failure that may be
	// retried with backoff.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrProvider marks a non-transient provider failure. Fails fast.
	ErrProvider = errors.New("provider request failed")

	// ErrSynthesis marks a failed answer-generation call. It is never
	// reinterpreted as an escalation: escalation signals that retrieval
	// was insufficient, not that the model call broke.
	ErrSynthesis = errors.New("answer synthesis failed")

	// ErrTimeout marks a provider call that exceeded its deadline.
	ErrTimeout = errors.New("provider call timed out")
)
