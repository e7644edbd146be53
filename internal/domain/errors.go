package domain

import "errors"

// ErrInvalidConfig marks a fatal configuration problem (missing
// credentials, overlap >= window size). Never retried. It lives here so
// both port and index can wrap the same sentinel without importing each
// other; port re-exports it as port.ErrInvalidConfig.
var ErrInvalidConfig = errors.New("invalid configuration")
