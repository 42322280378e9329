package ports

import (
	"context"

	"loanverify/domain/audit"
)

// AuditHistory is the ordered, append-only log of quality audits. Entries
// come back oldest first.
type AuditHistory interface {
	// Recent returns at most the last n entries
	Recent(ctx context.Context, n int) ([]audit.Entry, error)
	Append(ctx context.Context, entry audit.Entry) (audit.Entry, error)
	All(ctx context.Context) ([]audit.Entry, error)
	// WithLock runs fn while holding the history's writer lock so a
	// read-then-append sequence is not interleaved with another audit
	WithLock(ctx context.Context, fn func(ctx context.Context) error) error
}
