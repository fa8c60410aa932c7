package display

import (
	"fmt"
	"strings"
	"sync"
)

// Default geometry of the text-mode surface.
const (
	DefaultWidth   = 80
	DefaultHeight  = 25
	DefaultTabSize = 8
)

// Cell is one character position on the surface.
type Cell struct {
	Char byte
	Attr Attr
}

// Blank returns a space cell with the given attribute.
func Blank(attr Attr) Cell {
	return Cell{Char: ' ', Attr: attr}
}

// Surface is a text-mode character grid with a single cursor.
type Surface struct {
	mu sync.Mutex

	width, height int
	cells         []Cell

	x, y          int
	attr          Attr
	tabSize       int
	autoScroll    bool
	cursorVisible bool

	cursor   CursorDevice
	onScroll func(row []Cell)
	version  uint64
}

// Option configures a Surface.
type Option func(*Surface)

// WithSize sets the grid dimensions.
func WithSize(width, height int) Option {
	return func(s *Surface) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithTabSize sets the tab stop interval.
func WithTabSize(n int) Option {
	return func(s *Surface) {
		if n > 0 {
			s.tabSize = n
		}
	}
}

// WithAutoScroll enables or disables scrolling when output passes the last row.
func WithAutoScroll(enabled bool) Option {
	return func(s *Surface) { s.autoScroll = enabled }
}

// WithAttr sets the initial drawing attribute.
func WithAttr(attr Attr) Option {
	return func(s *Surface) { s.attr = attr }
}

// WithCursorDevice attaches a hardware cursor.
func WithCursorDevice(d CursorDevice) Option {
	return func(s *Surface) { s.cursor = d }
}

// New creates a cleared surface with the cursor at the origin.
func New(opts ...Option) *Surface {
	s := &Surface{
		width:         DefaultWidth,
		height:        DefaultHeight,
		attr:          DefaultAttr,
		tabSize:       DefaultTabSize,
		autoScroll:    true,
		cursorVisible: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cells = make([]Cell, s.width*s.height)
	s.clearLocked()
	if s.cursor != nil {
		s.cursor.SetCursorVisible(true)
	}
	return s
}

// Width returns the number of columns.
func (s *Surface) Width() int {
	return s.width
}

// Height returns the number of rows.
func (s *Surface) Height() int {
	return s.height
}

// Size returns the grid dimensions.
func (s *Surface) Size() (width, height int) {
	return s.width, s.height
}

// Version increments on every change. Presenters compare it to skip
// redundant redraws.
func (s *Surface) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// OnScroll registers fn to receive each row that scrolls off the top.
// fn runs with the surface locked and must not call back into it.
func (s *Surface) OnScroll(fn func(row []Cell)) {
	s.mu.Lock()
	s.onScroll = fn
	s.mu.Unlock()
}

// SetColor sets the drawing attribute.
func (s *Surface) SetColor(fg, bg Color) {
	s.mu.Lock()
	s.attr = MakeAttr(fg, bg)
	s.mu.Unlock()
}

// SetAttr sets the drawing attribute.
func (s *Surface) SetAttr(attr Attr) {
	s.mu.Lock()
	s.attr = attr
	s.mu.Unlock()
}

// Attr returns the drawing attribute.
func (s *Surface) Attr() Attr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attr
}

// SetAutoScroll enables or disables auto-scroll.
func (s *Surface) SetAutoScroll(enabled bool) {
	s.mu.Lock()
	s.autoScroll = enabled
	s.mu.Unlock()
}

// SetTabSize sets the tab stop interval.
func (s *Surface) SetTabSize(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.tabSize = n
	s.mu.Unlock()
}

// Cursor returns the cursor position.
func (s *Surface) Cursor() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// SetCursor moves the cursor, clamping to the grid.
func (s *Surface) SetCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x = clamp(x, 0, s.width-1)
	s.y = clamp(y, 0, s.height-1)
	s.version++
	s.syncCursorLocked()
}

// CursorVisible reports whether the cursor is shown.
func (s *Surface) CursorVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorVisible
}

// ShowCursor shows the cursor.
func (s *Surface) ShowCursor() {
	s.setCursorVisible(true)
}

// HideCursor hides the cursor.
func (s *Surface) HideCursor() {
	s.setCursorVisible(false)
}

func (s *Surface) setCursorVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorVisible = visible
	s.version++
	if s.cursor != nil {
		s.cursor.SetCursorVisible(visible)
		if visible {
			s.cursor.SetCursorOffset(s.offsetLocked())
		}
	}
}

// Cell returns the cell at (x, y) and whether the position is on the grid.
func (s *Surface) Cell(x, y int) (Cell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inBounds(x, y) {
		return Cell{}, false
	}
	return s.cells[y*s.width+x], true
}

// Row returns the text of row y with trailing spaces removed.
func (s *Surface) Row(y int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if y < 0 || y >= s.height {
		return ""
	}
	return RowText(s.cells[y*s.width : (y+1)*s.width])
}

// Text returns every row joined by newlines, trailing spaces removed.
func (s *Surface) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]string, s.height)
	for y := range rows {
		rows[y] = RowText(s.cells[y*s.width : (y+1)*s.width])
	}
	return strings.Join(rows, "\n")
}

// Cells returns a copy of the grid in row-major order.
func (s *Surface) Cells() []Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Cell(nil), s.cells...)
}

// PutChar renders one byte at the cursor.
func (s *Surface) PutChar(ch byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCharLocked(ch)
	s.syncCursorLocked()
}

// Write renders p and implements io.Writer.
func (s *Surface) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range p {
		s.putCharLocked(ch)
		s.syncCursorLocked()
	}
	return len(p), nil
}

// PutString renders str.
func (s *Surface) PutString(str string) {
	_, _ = s.Write([]byte(str))
}

// Printf renders formatted output and returns the number of bytes written.
func (s *Surface) Printf(format string, args ...any) (int, error) {
	return s.Write([]byte(fmt.Sprintf(format, args...)))
}

// PutCharAt stores a cell without moving the cursor. Out-of-range
// positions are ignored.
func (s *Surface) PutCharAt(x, y int, ch byte, attr Attr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCellLocked(x, y, Cell{Char: ch, Attr: attr})
}

// NewLine moves to the start of the next row.
func (s *Surface) NewLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newLineLocked()
	s.syncCursorLocked()
}

// Clear blanks the grid with the drawing attribute and homes the cursor.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.syncCursorLocked()
}

// Scroll shifts the grid up by lines rows. lines >= Height clears the
// grid and homes the cursor.
func (s *Surface) Scroll(lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollLocked(lines)
}

// DeleteLine blanks the cursor row and moves the cursor to its start.
func (s *Surface) DeleteLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	blank := Blank(s.attr)
	row := s.cells[s.y*s.width : (s.y+1)*s.width]
	for i := range row {
		row[i] = blank
	}
	s.x = 0
	s.version++
	s.syncCursorLocked()
}

// CopyRegion copies a width×height rectangle from (srcX, srcY) to
// (dstX, dstY). Overlapping rectangles are handled. Requests that do not
// fit on the grid are ignored.
func (s *Surface) CopyRegion(srcX, srcY, dstX, dstY, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rectFits(srcX, srcY, width, height) || !s.rectFits(dstX, dstY, width, height) {
		return
	}
	tmp := make([]Cell, width*height)
	for dy := 0; dy < height; dy++ {
		start := (srcY+dy)*s.width + srcX
		copy(tmp[dy*width:(dy+1)*width], s.cells[start:start+width])
	}
	for dy := 0; dy < height; dy++ {
		start := (dstY+dy)*s.width + dstX
		copy(s.cells[start:start+width], tmp[dy*width:(dy+1)*width])
	}
	s.version++
}

// FillRegion fills a rectangle with ch in attr. Requests that do not fit
// on the grid are ignored.
func (s *Surface) FillRegion(x, y, width, height int, ch byte, attr Attr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rectFits(x, y, width, height) {
		return
	}
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			s.cells[(y+dy)*s.width+x+dx] = Cell{Char: ch, Attr: attr}
		}
	}
	s.version++
}

func (s *Surface) putCharLocked(ch byte) {
	switch ch {
	case '\n':
		s.newLineLocked()
	case '\r':
		s.x = 0
	case '\t':
		next := (s.x/s.tabSize + 1) * s.tabSize
		if next > s.width {
			next = s.width
		}
		for n := next - s.x; n > 0; n-- {
			s.putCharLocked(' ')
		}
	case '\b':
		s.backspaceLocked()
	default:
		if ch < ' ' || ch > '~' {
			return
		}
		s.cells[s.y*s.width+s.x] = Cell{Char: ch, Attr: s.attr}
		s.version++
		s.x++
		if s.x >= s.width {
			s.newLineLocked()
		}
	}
}

func (s *Surface) backspaceLocked() {
	switch {
	case s.x > 0:
		s.x--
	case s.y > 0:
		s.y--
		s.x = s.width - 1
	default:
		return
	}
	s.cells[s.y*s.width+s.x] = Blank(s.attr)
	s.version++
}

func (s *Surface) newLineLocked() {
	s.x = 0
	s.y++
	if s.y >= s.height {
		if s.autoScroll {
			s.scrollLocked(1)
		}
		s.y = s.height - 1
	}
}

func (s *Surface) scrollLocked(lines int) {
	if lines <= 0 {
		return
	}
	if lines >= s.height {
		s.emitScrolledLocked(s.height)
		s.clearLocked()
		s.syncCursorLocked()
		return
	}
	s.emitScrolledLocked(lines)
	copy(s.cells, s.cells[lines*s.width:])
	s.fillLocked(s.cells[(s.height-lines)*s.width:])
	s.version++
}

func (s *Surface) emitScrolledLocked(rows int) {
	if s.onScroll == nil {
		return
	}
	for y := 0; y < rows; y++ {
		row := make([]Cell, s.width)
		copy(row, s.cells[y*s.width:(y+1)*s.width])
		s.onScroll(row)
	}
}

func (s *Surface) clearLocked() {
	s.fillLocked(s.cells)
	s.x, s.y = 0, 0
	s.version++
}

func (s *Surface) fillLocked(cells []Cell) {
	blank := Blank(s.attr)
	for i := range cells {
		cells[i] = blank
	}
}

func (s *Surface) setCellLocked(x, y int, c Cell) {
	if !s.inBounds(x, y) {
		return
	}
	s.cells[y*s.width+x] = c
	s.version++
}

func (s *Surface) offsetLocked() uint16 {
	return uint16(s.y*s.width + s.x)
}

func (s *Surface) syncCursorLocked() {
	s.version++
	if s.cursor != nil {
		s.cursor.SetCursorOffset(s.offsetLocked())
	}
}

func (s *Surface) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.width && y < s.height
}

func (s *Surface) rectFits(x, y, width, height int) bool {
	return x >= 0 && y >= 0 && width >= 0 && height >= 0 &&
		x+width <= s.width && y+height <= s.height
}

// RowText returns the characters of cells with trailing spaces removed.
func RowText(cells []Cell) string {
	b := make([]byte, len(cells))
	for i, c := range cells {
		if c.Char == 0 {
			b[i] = ' '
		} else {
			b[i] = c.Char
		}
	}
	return strings.TrimRight(string(b), " ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
