package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/logging"
)

// DefaultInterval is the refresh period used by Run.
const DefaultInterval = 16 * time.Millisecond

// Presenter draws a display surface onto a tcell screen.
type Presenter struct {
	mu       sync.Mutex
	screen   tcell.Screen
	surface  *display.Surface
	styles   *styleCache
	offsetX  int
	offsetY  int
	version  uint64
	drawn    bool
	frames   uint64
	interval time.Duration
	logger   *logrus.Entry
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithOffset places the surface's top-left corner at (x, y) on the
// screen.
func WithOffset(x, y int) Option {
	return func(p *Presenter) {
		if x >= 0 && y >= 0 {
			p.offsetX, p.offsetY = x, y
		}
	}
}

// WithInterval sets the Run refresh period.
func WithInterval(d time.Duration) Option {
	return func(p *Presenter) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPresenter creates a presenter. The screen must already be
// initialized.
func NewPresenter(screen tcell.Screen, surface *display.Surface, opts ...Option) *Presenter {
	p := &Presenter{
		screen:   screen,
		surface:  surface,
		styles:   newStyleCache(),
		interval: DefaultInterval,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Draw copies the surface to the screen if it changed since the last
// draw. It reports whether anything was drawn.
func (p *Presenter) Draw() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	version := p.surface.Version()
	if p.drawn && version == p.version {
		return false
	}
	snap := p.surface.Snapshot()

	sw, sh := p.screen.Size()
	for y := 0; y < snap.Height; y++ {
		sy := y + p.offsetY
		if sy >= sh {
			break
		}
		for x := 0; x < snap.Width; x++ {
			sx := x + p.offsetX
			if sx >= sw {
				break
			}
			c := snap.Cells[y*snap.Width+x]
			p.screen.SetContent(sx, sy, glyph(c.Char), nil, p.styles[c.Attr])
		}
	}

	if snap.CursorVisible {
		p.screen.ShowCursor(snap.X+p.offsetX, snap.Y+p.offsetY)
	} else {
		p.screen.HideCursor()
	}
	p.screen.Show()

	p.version = version
	p.drawn = true
	p.frames++
	return true
}

// Invalidate forces the next Draw to repaint, e.g. after a resize.
func (p *Presenter) Invalidate() {
	p.mu.Lock()
	p.drawn = false
	p.mu.Unlock()
}

// Resize clears the screen and repaints.
func (p *Presenter) Resize() {
	p.mu.Lock()
	p.screen.Clear()
	p.drawn = false
	p.mu.Unlock()
	p.Draw()
}

// Bell rings the host terminal bell.
func (p *Presenter) Bell() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.screen.Beep(); err != nil {
		p.logger.WithError(err).Debug("beep failed")
	}
}

// Frames returns the number of completed draws.
func (p *Presenter) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Run redraws on every tick until ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Draw()
		}
	}
}
