package sync

import "sync/atomic"

// CancelHandle is a cooperative stop flag. It is set from outside the
// engine's call stack (signal handler, UI) and read-only inside; the
// engine polls it at document and folder boundaries, never mid-download,
// so a partially written file can't be left behind.
type CancelHandle struct {
	flag atomic.Bool
}

func NewCancelHandle() *CancelHandle {
	return &CancelHandle{}
}

// Cancel requests the run to stop at the next checkpoint. Idempotent.
func (h *CancelHandle) Cancel() {
	h.flag.Store(true)
}

// Cancelled reports whether a stop was requested. Safe on a nil handle.
func (h *CancelHandle) Cancelled() bool {
	return h != nil && h.flag.Load()
}
