package audit

import "context"

// Writer is the persistence port C6 depends on. A write failure never fails
// the request that triggered it — callers log a single-line diagnostic and
// proceed (spec §4.6 / §7).
type Writer interface {
	// Write persists one audit row. ev.ID is pre-populated by the caller.
	Write(ctx context.Context, ev Event) error
}
