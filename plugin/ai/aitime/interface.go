// Package aitime normalizes heterogeneous timestamp values into a single comparable instant.
// Every other follow-up component reads time through this package.
package aitime

import (
	"time"
)

// TimeNormalizer defines the timestamp normalization interface.
// Consumers: conversation classifier, memory manager, reminder orchestrator.
type TimeNormalizer interface {
	// Normalize converts a raw timestamp into time.Time.
	// Supports: time.Time, *timestamppb.Timestamp, document-store seconds/nanoseconds maps,
	// ISO-8601 strings and epoch milliseconds.
	// Unrecognized shapes resolve to the current instant instead of failing.
	Normalize(raw any) time.Time
}

// asTimer is implemented by provider timestamp wrappers (timestamppb.Timestamp and friends).
type asTimer interface {
	AsTime() time.Time
}

var _ TimeNormalizer = (*Normalizer)(nil)
