package domain

// MeetingContextLimit is how many meeting transcripts a session retains.
const MeetingContextLimit = 50

// ContextWindow keeps the most recent transcripts, oldest first.
// It is not safe for concurrent use; the owning session guards it.
type ContextWindow struct {
	limit   int
	entries []string
}

func NewContextWindow(limit int) *ContextWindow {
	if limit <= 0 {
		limit = MeetingContextLimit
	}
	return &ContextWindow{limit: limit, entries: make([]string, 0, limit)}
}

// Add appends s and drops the oldest entry once the limit is exceeded.
func (w *ContextWindow) Add(s string) {
	if len(w.entries) == w.limit {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:w.limit-1]
	}
	w.entries = append(w.entries, s)
}

// Recent returns a copy of the last n entries, oldest first.
func (w *ContextWindow) Recent(n int) []string {
	if n <= 0 || n > len(w.entries) {
		n = len(w.entries)
	}
	out := make([]string, n)
	copy(out, w.entries[len(w.entries)-n:])
	return out
}

func (w *ContextWindow) Len() int { return len(w.entries) }

func (w *ContextWindow) Reset() { w.entries = w.entries[:0] }
