package terminal

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// recordingHandler records parser actions as strings.
type recordingHandler struct {
	calls []string
}

func (h *recordingHandler) MoveCursorRelative(dx, dy int) {
	h.calls = append(h.calls, fmt.Sprintf("rel %d %d", dx, dy))
}

func (h *recordingHandler) MoveCursorTo(x, y int) {
	h.calls = append(h.calls, fmt.Sprintf("to %d %d", x, y))
}

func (h *recordingHandler) EraseDisplay(mode int) {
	h.calls = append(h.calls, fmt.Sprintf("ed %d", mode))
}

func (h *recordingHandler) EraseLine(mode int) {
	h.calls = append(h.calls, fmt.Sprintf("el %d", mode))
}

func (h *recordingHandler) SelectGraphic(params []int) {
	h.calls = append(h.calls, fmt.Sprintf("sgr %v", params))
}

func (h *recordingHandler) Bell() {
	h.calls = append(h.calls, "bell")
}

func TestParserDispatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		calls []string
		out   string
	}{
		{"plain text", "abc", nil, "abc"},
		{"clear screen", "\x1b[2J", []string{"ed 2"}, ""},
		{"clear default", "\x1b[J", []string{"ed 1"}, ""},
		{"position", "\x1b[5;10H", []string{"to 9 4"}, ""},
		{"home", "\x1b[H", []string{"to 0 0"}, ""},
		{"row only", "\x1b[3H", []string{"to 0 2"}, ""},
		{"empty first param", "\x1b[;5H", []string{"to 4 0"}, ""},
		{"up", "\x1b[3A", []string{"rel 0 -3"}, ""},
		{"down default", "\x1b[B", []string{"rel 0 1"}, ""},
		{"right", "\x1b[2C", []string{"rel 2 0"}, ""},
		{"left", "\x1b[4D", []string{"rel -4 0"}, ""},
		{"erase line", "\x1b[K", []string{"el 1"}, ""},
		{"sgr", "\x1b[31;44m", []string{"sgr [31 44]"}, ""},
		{"sgr reset", "\x1b[0m", []string{"sgr [0]"}, ""},
		{"sgr default", "\x1b[m", []string{"sgr [1]"}, ""},
		{"surrounded", "a\x1b[1Cb", []string{"rel 1 0"}, "ab"},
		{"simple escape swallowed", "\x1bcX", nil, "X"},
		{"bell", "x\ay", []string{"bell"}, "xy"},
		{"unknown final", "\x1b[1Zq", nil, "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			p := NewParser(h)
			out := p.Parse([]byte(tt.input))
			if string(out) != tt.out {
				t.Errorf("pass-through: expected %q, got %q", tt.out, out)
			}
			if !reflect.DeepEqual(h.calls, tt.calls) {
				t.Errorf("calls: expected %v, got %v", tt.calls, h.calls)
			}
			if p.State() != StateNone {
				t.Errorf("expected state none, got %v", p.State())
			}
		})
	}
}

func TestParserStates(t *testing.T) {
	h := &recordingHandler{}
	p := NewParser(h)

	if !p.Feed(0x1B) || p.State() != StateEscape {
		t.Fatalf("ESC: expected consumed and escape state, got %v", p.State())
	}
	if !p.Feed('[') || p.State() != StateCSI {
		t.Fatalf("[: expected consumed and csi state, got %v", p.State())
	}
	if !p.Feed('2') {
		t.Error("parameter bytes should be consumed")
	}
	if got := string(p.Pending()); got != "\x1b[2" {
		t.Errorf("expected pending %q, got %q", "\x1b[2", got)
	}
	if !p.Feed('J') || p.State() != StateNone {
		t.Errorf("final byte should end the sequence, state %v", p.State())
	}
	if len(p.Pending()) != 0 {
		t.Error("expected empty buffer after dispatch")
	}
	if p.Feed('x') {
		t.Error("plain byte should pass through")
	}
}

func TestParserSplitAcrossCalls(t *testing.T) {
	h := &recordingHandler{}
	p := NewParser(h)
	p.Parse([]byte("\x1b["))
	p.Parse([]byte("2"))
	p.Parse([]byte("J"))
	if len(h.calls) != 1 || h.calls[0] != "ed 2" {
		t.Errorf("expected one clear, got %v", h.calls)
	}
}

func TestParserOverflow(t *testing.T) {
	h := &recordingHandler{}
	p := NewParser(h)

	input := "\x1b[" + strings.Repeat("1", 40) + "A"
	out := p.Parse([]byte(input))

	if p.Aborted() != 1 {
		t.Errorf("expected 1 aborted sequence, got %d", p.Aborted())
	}
	if len(h.calls) != 0 {
		t.Errorf("aborted sequence must not dispatch, got %v", h.calls)
	}
	// 30 digits fill the buffer, the 31st aborts, the rest pass through.
	if want := strings.Repeat("1", 9) + "A"; string(out) != want {
		t.Errorf("expected %q, got %q", want, out)
	}
	if p.State() != StateNone {
		t.Errorf("expected none, got %v", p.State())
	}

	p.Parse([]byte("\x1b[2J"))
	if len(h.calls) != 1 {
		t.Errorf("parser should recover after overflow, got %v", h.calls)
	}
}

func TestParserIntercepts(t *testing.T) {
	p := NewParser(&recordingHandler{})
	if p.Intercepts('a') {
		t.Error("plain byte should not be intercepted")
	}
	if !p.Intercepts(0x1B) || !p.Intercepts(0x07) {
		t.Error("ESC and BEL should be intercepted")
	}
	p.Feed(0x1B)
	if !p.Intercepts('a') {
		t.Error("bytes inside a sequence should be intercepted")
	}
	p.Reset()
	if p.Intercepts('a') {
		t.Error("reset should return to none")
	}
}

func TestParserUnknownCallback(t *testing.T) {
	p := NewParser(&recordingHandler{})
	var seen []string
	p.SetUnknownCallback(func(seq string) { seen = append(seen, seq) })
	p.Parse([]byte("\x1b[1;2Z\x1b[2J"))
	if len(seen) != 1 || seen[0] != "\x1b[1;2Z" {
		t.Errorf("unexpected unknown sequences %q", seen)
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		raw  string
		want []int
	}{
		{"", nil},
		{"5", []int{5}},
		{"5;10", []int{5, 10}},
		{";", []int{1, 1}},
		{"?25", []int{1}},
		{"0;31;44", []int{0, 31, 44}},
		{"70000", []int{MaxParam}},
		{"9223372036854775807", []int{MaxParam}},
		{"99999999999999999999;2", []int{MaxParam, 2}},
	}
	for _, tt := range tests {
		if got := parseParams([]byte(tt.raw)); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseParams(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParserStateString(t *testing.T) {
	if StateCSI.String() != "csi" || ParserState(9).String() != "ParserState(9)" {
		t.Error("unexpected state names")
	}
}
