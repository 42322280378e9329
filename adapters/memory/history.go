package memory

import (
	"context"
	"sync"

	"loanverify/domain/audit"
)

// AuditHistory is an ordered in-process audit log. The writer lock is
// separate from the data lock so readers are never blocked by an audit
// holding WithLock.
type AuditHistory struct {
	writer  sync.Mutex
	mu      sync.RWMutex
	entries []audit.Entry
	seq     int64
}

func NewAuditHistory() *AuditHistory {
	return &AuditHistory{}
}

func (h *AuditHistory) Recent(ctx context.Context, n int) ([]audit.Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if n >= 0 && len(h.entries) > n {
		start = len(h.entries) - n
	}
	return append([]audit.Entry(nil), h.entries[start:]...), nil
}

func (h *AuditHistory) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	entry.Seq = h.seq
	h.entries = append(h.entries, entry)
	return entry, nil
}

func (h *AuditHistory) All(ctx context.Context) ([]audit.Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]audit.Entry(nil), h.entries...), nil
}

func (h *AuditHistory) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	h.writer.Lock()
	defer h.writer.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
