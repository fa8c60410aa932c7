package terminal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EscapeBufferSize is the longest escape sequence the parser accumulates,
// including the ESC and '[' prefix.
const EscapeBufferSize = 32

const (
	charBEL = 0x07
	charESC = 0x1B
)

// ParserState is the state of the escape-sequence machine.
type ParserState int

const (
	StateNone ParserState = iota
	StateEscape
	StateCSI
)

// String returns the state name.
func (s ParserState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateEscape:
		return "escape"
	case StateCSI:
		return "csi"
	default:
		return fmt.Sprintf("ParserState(%d)", int(s))
	}
}

// Handler performs the actions decoded by a Parser.
type Handler interface {
	// MoveCursorRelative moves the cursor by dx columns and dy rows.
	MoveCursorRelative(dx, dy int)
	// MoveCursorTo moves the cursor to a zero-based position.
	MoveCursorTo(x, y int)
	// EraseDisplay handles CSI J with its first parameter.
	EraseDisplay(mode int)
	// EraseLine handles CSI K with its first parameter.
	EraseLine(mode int)
	// SelectGraphic handles CSI m with every parameter.
	SelectGraphic(params []int)
	// Bell handles BEL.
	Bell()
}

// Parser decodes the supported subset of ANSI escape sequences one byte at
// a time. It is not safe for concurrent use.
type Parser struct {
	handler Handler
	state   ParserState
	buf     []byte

	// Aborted counts sequences dropped for exceeding the buffer.
	aborted uint64
	// onUnknown receives complete sequences with an unsupported final byte.
	onUnknown func(seq string)
}

// NewParser creates a parser dispatching to h.
func NewParser(h Handler) *Parser {
	return &Parser{
		handler: h,
		state:   StateNone,
		buf:     make([]byte, 0, EscapeBufferSize),
	}
}

// SetUnknownCallback sets the callback for unsupported sequences.
func (p *Parser) SetUnknownCallback(fn func(seq string)) {
	p.onUnknown = fn
}

// State returns the current machine state.
func (p *Parser) State() ParserState {
	return p.state
}

// Pending returns a copy of the partially accumulated sequence.
func (p *Parser) Pending() []byte {
	return append([]byte(nil), p.buf...)
}

// Aborted returns the number of sequences dropped on overflow.
func (p *Parser) Aborted() uint64 {
	return p.aborted
}

// Reset abandons any partial sequence.
func (p *Parser) Reset() {
	p.state = StateNone
	p.buf = p.buf[:0]
}

// Intercepts reports whether Feed(b) would consume b.
func (p *Parser) Intercepts(b byte) bool {
	return p.state != StateNone || b == charESC || b == charBEL
}

// Parse feeds every byte of data and returns the bytes that were not
// consumed, in order.
func (p *Parser) Parse(data []byte) []byte {
	var out []byte
	for _, b := range data {
		if !p.Feed(b) {
			out = append(out, b)
		}
	}
	return out
}

// Feed advances the machine by one byte. It returns true if the byte was
// consumed by the parser and must not be rendered.
func (p *Parser) Feed(b byte) bool {
	switch p.state {
	case StateNone:
		switch b {
		case charESC:
			p.buf = append(p.buf[:0], b)
			p.state = StateEscape
			return true
		case charBEL:
			p.handler.Bell()
			return true
		}
		return false

	case StateEscape:
		if b == '[' {
			p.buf = append(p.buf, b)
			p.state = StateCSI
			return true
		}
		// Simple escapes are not supported; the byte is swallowed.
		p.Reset()
		return true

	case StateCSI:
		if len(p.buf) >= EscapeBufferSize {
			p.aborted++
			p.Reset()
			return true
		}
		p.buf = append(p.buf, b)
		if isFinal(b) {
			p.dispatch(b)
			p.Reset()
		}
		return true
	}
	return false
}

func (p *Parser) dispatch(final byte) {
	params := parseParams(p.buf[2 : len(p.buf)-1])
	param := func(i int) int {
		if i < len(params) {
			return params[i]
		}
		return 1
	}

	switch final {
	case 'A':
		p.handler.MoveCursorRelative(0, -param(0))
	case 'B':
		p.handler.MoveCursorRelative(0, param(0))
	case 'C':
		p.handler.MoveCursorRelative(param(0), 0)
	case 'D':
		p.handler.MoveCursorRelative(-param(0), 0)
	case 'H':
		p.handler.MoveCursorTo(param(1)-1, param(0)-1)
	case 'J':
		p.handler.EraseDisplay(param(0))
	case 'K':
		p.handler.EraseLine(param(0))
	case 'm':
		if len(params) == 0 {
			params = []int{1}
		}
		p.handler.SelectGraphic(params)
	default:
		if p.onUnknown != nil {
			p.onUnknown(string(p.buf))
		}
	}
}

// MaxParam caps escape parameters so cursor arithmetic cannot overflow.
const MaxParam = 1 << 16

// parseParams splits semicolon-separated decimal parameters. Empty or
// malformed fields read as 1; values above MaxParam read as MaxParam.
func parseParams(raw []byte) []int {
	if len(raw) == 0 {
		return nil
	}
	fields := strings.Split(string(raw), ";")
	params := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		switch {
		case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(f, "-"):
			n = MaxParam
		case err != nil || n < 0:
			n = 1
		}
		params[i] = min(n, MaxParam)
	}
	return params
}

func isFinal(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
