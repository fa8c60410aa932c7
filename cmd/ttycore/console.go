package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ttycore/internal/config"
	"github.com/dshills/ttycore/internal/input/hostkbd"
	"github.com/dshills/ttycore/internal/renderer"
	"github.com/dshills/ttycore/internal/script"
	"github.com/dshills/ttycore/internal/system"
	"github.com/dshills/ttycore/internal/terminal"
)

// errQuit is returned by Run when the user asks to leave.
var errQuit = errors.New("quit")

// console ties the simulated system to the host terminal.
type console struct {
	sys       *system.System
	screen    tcell.Screen
	presenter *renderer.Presenter
	bridge    *hostkbd.Bridge
	scripts   *script.Runtime
	watcher   *config.Watcher
	shell     *shell
	logger    *logrus.Entry

	quit     chan struct{}
	stopOnce sync.Once
	closeMu  sync.Mutex
	closed   bool
}

func newConsole(cfg *config.Config, opts options, logger *logrus.Entry) (*console, error) {
	sys, err := system.New(cfg, system.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := sys.Init(); err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		sys.Shutdown()
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		sys.Shutdown()
		return nil, fmt.Errorf("initializing screen: %w", err)
	}

	c := &console{
		sys:    sys,
		screen: screen,
		presenter: renderer.NewPresenter(screen, sys.Screen(),
			renderer.WithLogger(logger.WithField("component", "renderer"))),
		bridge: hostkbd.NewBridge(sys),
		logger: logger,
		quit:   make(chan struct{}),
	}

	sys.Events().Subscribe(func(eventType string, _ map[string]any) {
		if eventType == terminal.EventBell {
			c.presenter.Bell()
		}
	})

	c.scripts = script.New(sys,
		script.WithSandbox(cfg.Script.Sandbox),
		script.WithTimeout(time.Duration(cfg.Script.TimeoutMS)*time.Millisecond),
		script.WithOutput(focusedWriter{sys.Terminals()}),
		script.WithLogger(logger.WithField("component", "script")),
	)
	c.shell = newShell(sys, c.scripts, logger.WithField("component", "shell"))

	if opts.Watch {
		c.watcher, err = config.Watch(opts.ConfigPath, c.reload,
			config.WithWatcherLogger(logger.WithField("component", "config")))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("watching config: %w", err)
		}
	}

	if cfg.Script.Init != "" {
		if err := c.scripts.DoFile(context.Background(), cfg.Script.Init); err != nil {
			logger.WithError(err).WithField("script", cfg.Script.Init).Warn("init script failed")
			c.shell.Printf("init script: %v\n", err)
		}
	}
	c.shell.Start()
	return c, nil
}

// Run drives the console until Stop is called or the quit key is
// pressed.
func (c *console) Run() error {
	events := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := c.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-c.quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(renderer.DefaultInterval)
	defer ticker.Stop()

	c.presenter.Draw()
	for {
		select {
		case <-c.quit:
			return errQuit
		case ev, ok := <-events:
			if !ok {
				return errQuit
			}
			if err := c.handleEvent(ev); err != nil {
				return err
			}
		case <-ticker.C:
			c.shell.Poll()
			c.presenter.Draw()
		}
	}
}

func (c *console) handleEvent(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlRightSq {
			return errQuit
		}
		if err := c.bridge.HandleEvent(ev); err != nil {
			if errors.Is(err, hostkbd.ErrUnmapped) {
				c.logger.WithField("key", ev.Name()).Debug("unmapped key")
				return nil
			}
			c.logger.WithError(err).Debug("key dropped")
		}
	case *tcell.EventResize:
		c.presenter.Resize()
	}
	return nil
}

// reload applies a configuration read by the watcher.
func (c *console) reload(cfg *config.Config, err error) {
	if err != nil {
		c.shell.Printf("config reload failed: %v\n", err)
		return
	}
	if err := c.sys.Apply(cfg); err != nil {
		c.logger.WithError(err).Warn("applying configuration")
		return
	}
	c.presenter.Invalidate()
}

// Stop makes Run return.
func (c *console) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

// Close releases the host screen and shuts the system down.
func (c *console) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	c.Stop()
	if c.watcher != nil {
		c.watcher.Close()
	}
	if c.scripts != nil {
		c.scripts.Close()
	}
	c.screen.Fini()
	if err := c.sys.Shutdown(); err != nil {
		c.logger.WithError(err).Warn("shutdown")
	}
}

// focusedWriter writes to whichever terminal has focus.
type focusedWriter struct {
	reg *terminal.Registry
}

func (w focusedWriter) Write(p []byte) (int, error) {
	t := w.reg.Focused()
	if t == nil {
		return len(p), nil
	}
	return w.reg.Write(t, p)
}
