package terminal

import (
	"strings"
	"sync"

	"github.com/dshills/ttycore/internal/display"
)

// DefaultHistorySize is the default number of scrollback lines.
const DefaultHistorySize = 1000

// History stores scrollback lines. It is safe for concurrent use and takes
// no other locks, so it can be fed from display callbacks.
type History struct {
	mu       sync.Mutex
	lines    []string
	maxLines int
}

// NewHistory creates a history holding at most maxLines lines.
func NewHistory(maxLines int) *History {
	if maxLines <= 0 {
		maxLines = DefaultHistorySize
	}
	return &History{
		lines:    make([]string, 0, min(maxLines, 64)),
		maxLines: maxLines,
	}
}

// Add appends a line, dropping the oldest when full.
func (h *History) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
	if len(h.lines) > h.maxLines {
		h.lines = h.lines[len(h.lines)-h.maxLines:]
	}
}

// AddRow appends a display row.
func (h *History) AddRow(row []display.Cell) {
	h.Add(display.RowText(row))
}

// Line returns a line from history (0 = oldest).
func (h *History) Line(index int) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.lines) {
		return "", false
	}
	return h.lines[index], true
}

// Lines returns a copy of every line, oldest first.
func (h *History) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

// Len returns the number of lines in history.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

// Cap returns the maximum number of lines.
func (h *History) Cap() int {
	return h.maxLines
}

// Clear clears the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = h.lines[:0]
}

// Text returns all history joined by newlines.
func (h *History) Text() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strings.Join(h.lines, "\n")
}
