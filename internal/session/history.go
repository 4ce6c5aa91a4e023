package session

// DefaultHistorySize bounds how many command lines a session remembers.
const DefaultHistorySize = 100

// History is a bounded list of command lines, oldest first. The terminal page
// browses it with the arrow keys.
type History struct {
	size    int
	entries []string
}

// NewHistory returns an empty History holding at most size entries.
func NewHistory(size int, entries ...string) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	h := &History{size: size}
	for _, e := range entries {
		h.Push(e)
	}
	return h
}

// Push appends entry unless it repeats the last one, dropping the oldest
// entry when the history is full.
func (h *History) Push(entry string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

// Entries returns a copy of the stored lines, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Last returns up to n most recent entries, oldest first.
func (h *History) Last(n int) []string {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	return append([]string(nil), h.entries[len(h.entries)-n:]...)
}

func (h *History) Len() int { return len(h.entries) }
