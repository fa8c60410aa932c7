package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/input/keyboard"
	"github.com/dshills/ttycore/internal/logging"
	"github.com/dshills/ttycore/internal/terminal"
	"github.com/dshills/ttycore/internal/tty"
)

// Config is the complete ttycore configuration.
type Config struct {
	Log      LogConfig      `toml:"log" yaml:"log"`
	Display  DisplayConfig  `toml:"display" yaml:"display"`
	Keyboard KeyboardConfig `toml:"keyboard" yaml:"keyboard"`
	TTY      TTYConfig      `toml:"tty" yaml:"tty"`
	Terminal TerminalConfig `toml:"terminal" yaml:"terminal"`
	Script   ScriptConfig   `toml:"script" yaml:"script"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	// File receives log output. Empty means stderr.
	File string `toml:"file" yaml:"file"`
}

// DisplayConfig configures the text display.
type DisplayConfig struct {
	Width      int    `toml:"width" yaml:"width"`
	Height     int    `toml:"height" yaml:"height"`
	TabSize    int    `toml:"tab_size" yaml:"tab_size"`
	AutoScroll bool   `toml:"auto_scroll" yaml:"auto_scroll"`
	Foreground string `toml:"foreground" yaml:"foreground"`
	Background string `toml:"background" yaml:"background"`
}

// KeyboardConfig configures the keyboard driver.
type KeyboardConfig struct {
	QueueSize   int  `toml:"queue_size" yaml:"queue_size"`
	RepeatDelay int  `toml:"repeat_delay" yaml:"repeat_delay"`
	RepeatRate  int  `toml:"repeat_rate" yaml:"repeat_rate"`
	NumLock     bool `toml:"num_lock" yaml:"num_lock"`
}

// TTYConfig configures the TTY devices.
type TTYConfig struct {
	Count         int    `toml:"count" yaml:"count"`
	BufferSize    int    `toml:"buffer_size" yaml:"buffer_size"`
	MaxLineLength int    `toml:"max_line_length" yaml:"max_line_length"`
	Mode          string `toml:"mode" yaml:"mode"`
	Echo          bool   `toml:"echo" yaml:"echo"`
	Canonical     bool   `toml:"canonical" yaml:"canonical"`
	Signals       bool   `toml:"signals" yaml:"signals"`
	CRLF          bool   `toml:"crlf" yaml:"crlf"`
	TabExpand     bool   `toml:"tab_expand" yaml:"tab_expand"`
	FlowControl   bool   `toml:"flow_control" yaml:"flow_control"`
	// Banner is printed when the foreground device opens; %s is the name.
	Banner string `toml:"banner" yaml:"banner"`
}

// TerminalConfig configures the terminal registry.
type TerminalConfig struct {
	HistorySize int            `toml:"history_size" yaml:"history_size"`
	Bell        bool           `toml:"bell" yaml:"bell"`
	AutoWrap    bool           `toml:"auto_wrap" yaml:"auto_wrap"`
	History     bool           `toml:"history" yaml:"history"`
	Terminals   []TerminalSpec `toml:"terminals" yaml:"terminals"`
}

// TerminalSpec describes a terminal created at boot.
type TerminalSpec struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
	TTY  int    `toml:"tty" yaml:"tty"`
}

// ScriptConfig configures the init script.
type ScriptConfig struct {
	// Init is a Lua file run after boot. Empty disables it.
	Init string `toml:"init" yaml:"init"`
	// Sandbox removes file and OS access from scripts.
	Sandbox bool `toml:"sandbox" yaml:"sandbox"`
	// TimeoutMS bounds each script run in milliseconds; 0 means unlimited.
	TimeoutMS int `toml:"timeout_ms" yaml:"timeout_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Display: DisplayConfig{
			Width:      display.DefaultWidth,
			Height:     display.DefaultHeight,
			TabSize:    display.DefaultTabSize,
			AutoScroll: true,
			Foreground: display.DefaultForeground.String(),
			Background: display.DefaultBackground.String(),
		},
		Keyboard: KeyboardConfig{
			QueueSize: keyboard.DefaultQueueSize,
		},
		TTY: TTYConfig{
			Count:         4,
			BufferSize:    tty.DefaultBufferSize,
			MaxLineLength: tty.DefaultMaxLineLength,
			Mode:          tty.ModeCooked.String(),
			Echo:          true,
			Canonical:     true,
			Signals:       true,
			CRLF:          true,
			TabExpand:     true,
		},
		Terminal: TerminalConfig{
			HistorySize: terminal.DefaultHistorySize,
			Bell:        true,
			AutoWrap:    true,
			History:     true,
			Terminals: []TerminalSpec{
				{Name: "console", Type: "console", TTY: 0},
			},
		},
		Script: ScriptConfig{
			Sandbox:   true,
			TimeoutMS: 5000,
		},
	}
}

// Validate checks every setting and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(key, msg string, v any) {
		errs = append(errs, &ValidationError{Key: key, Message: msg, Value: v})
	}

	if !logging.ValidLevel(c.Log.Level) {
		bad("log.level", "unknown level", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		bad("log.format", "must be text or json", c.Log.Format)
	}

	if c.Display.Width < 1 || c.Display.Width > 255 {
		bad("display.width", "must be between 1 and 255", c.Display.Width)
	}
	if c.Display.Height < 1 || c.Display.Height > 255 {
		bad("display.height", "must be between 1 and 255", c.Display.Height)
	}
	if c.Display.TabSize < 1 {
		bad("display.tab_size", "must be positive", c.Display.TabSize)
	}
	if _, err := display.ParseColor(c.Display.Foreground); err != nil {
		bad("display.foreground", err.Error(), c.Display.Foreground)
	}
	if _, err := display.ParseColor(c.Display.Background); err != nil {
		bad("display.background", err.Error(), c.Display.Background)
	}

	if c.Keyboard.QueueSize < 1 {
		bad("keyboard.queue_size", "must be positive", c.Keyboard.QueueSize)
	}
	if c.Keyboard.RepeatDelay < 0 || c.Keyboard.RepeatDelay > keyboard.MaxRepeatDelay {
		bad("keyboard.repeat_delay", fmt.Sprintf("must be between 0 and %d", keyboard.MaxRepeatDelay), c.Keyboard.RepeatDelay)
	}
	if c.Keyboard.RepeatRate < 0 || c.Keyboard.RepeatRate > keyboard.MaxRepeatRate {
		bad("keyboard.repeat_rate", fmt.Sprintf("must be between 0 and %d", keyboard.MaxRepeatRate), c.Keyboard.RepeatRate)
	}

	if c.TTY.Count < 1 || c.TTY.Count > 16 {
		bad("tty.count", "must be between 1 and 16", c.TTY.Count)
	}
	if c.TTY.BufferSize < 1 {
		bad("tty.buffer_size", "must be positive", c.TTY.BufferSize)
	}
	if c.TTY.MaxLineLength < 2 {
		bad("tty.max_line_length", "must be at least 2", c.TTY.MaxLineLength)
	}
	if _, err := tty.ParseMode(c.TTY.Mode); err != nil {
		bad("tty.mode", "must be cooked or raw", c.TTY.Mode)
	}

	if c.Terminal.HistorySize < 1 {
		bad("terminal.history_size", "must be positive", c.Terminal.HistorySize)
	}
	names := make(map[string]bool)
	minors := make(map[int]bool)
	for i, spec := range c.Terminal.Terminals {
		key := fmt.Sprintf("terminal.terminals[%d]", i)
		if spec.Name == "" {
			bad(key+".name", "must not be empty", spec.Name)
		} else if names[spec.Name] {
			bad(key+".name", "duplicate name", spec.Name)
		}
		names[spec.Name] = true
		if _, err := terminal.ParseType(spec.Type); err != nil {
			bad(key+".type", "unknown type", spec.Type)
		}
		if spec.TTY < 0 || spec.TTY >= c.TTY.Count {
			bad(key+".tty", fmt.Sprintf("must be between 0 and %d", c.TTY.Count-1), spec.TTY)
		} else if minors[spec.TTY] {
			bad(key+".tty", "bound twice", spec.TTY)
		}
		minors[spec.TTY] = true
	}

	if c.Script.TimeoutMS < 0 {
		bad("script.timeout_ms", "must not be negative", c.Script.TimeoutMS)
	}

	return errors.Join(errs...)
}

// Set assigns a single setting from its string form. Keys use the file
// names, e.g. "display.width" or "tty.echo".
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "log.level":
		c.Log.Level = value
	case "log.format":
		c.Log.Format = value
	case "log.file":
		c.Log.File = value
	case "display.width":
		return setInt(&c.Display.Width, key, value)
	case "display.height":
		return setInt(&c.Display.Height, key, value)
	case "display.tab_size":
		return setInt(&c.Display.TabSize, key, value)
	case "display.auto_scroll":
		return setBool(&c.Display.AutoScroll, key, value)
	case "display.foreground":
		c.Display.Foreground = value
	case "display.background":
		c.Display.Background = value
	case "keyboard.queue_size":
		return setInt(&c.Keyboard.QueueSize, key, value)
	case "keyboard.repeat_delay":
		return setInt(&c.Keyboard.RepeatDelay, key, value)
	case "keyboard.repeat_rate":
		return setInt(&c.Keyboard.RepeatRate, key, value)
	case "keyboard.num_lock":
		return setBool(&c.Keyboard.NumLock, key, value)
	case "tty.count":
		return setInt(&c.TTY.Count, key, value)
	case "tty.buffer_size":
		return setInt(&c.TTY.BufferSize, key, value)
	case "tty.max_line_length":
		return setInt(&c.TTY.MaxLineLength, key, value)
	case "tty.mode":
		c.TTY.Mode = value
	case "tty.echo":
		return setBool(&c.TTY.Echo, key, value)
	case "tty.canonical":
		return setBool(&c.TTY.Canonical, key, value)
	case "tty.signals":
		return setBool(&c.TTY.Signals, key, value)
	case "tty.crlf":
		return setBool(&c.TTY.CRLF, key, value)
	case "tty.tab_expand":
		return setBool(&c.TTY.TabExpand, key, value)
	case "tty.flow_control":
		return setBool(&c.TTY.FlowControl, key, value)
	case "tty.banner":
		c.TTY.Banner = value
	case "terminal.history_size":
		return setInt(&c.Terminal.HistorySize, key, value)
	case "terminal.bell":
		return setBool(&c.Terminal.Bell, key, value)
	case "terminal.auto_wrap":
		return setBool(&c.Terminal.AutoWrap, key, value)
	case "terminal.history":
		return setBool(&c.Terminal.History, key, value)
	case "script.init":
		c.Script.Init = value
	case "script.sandbox":
		return setBool(&c.Script.Sandbox, key, value)
	case "script.timeout_ms":
		return setInt(&c.Script.TimeoutMS, key, value)
	default:
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	return nil
}

// Discipline returns the TTY line discipline flags.
func (c *Config) Discipline() tty.Config {
	return tty.Config{
		Echo:        c.TTY.Echo,
		Canonical:   c.TTY.Canonical,
		Signals:     c.TTY.Signals,
		CRLF:        c.TTY.CRLF,
		TabExpand:   c.TTY.TabExpand,
		FlowControl: c.TTY.FlowControl,
	}
}

// Features returns the terminal feature flags.
func (c *Config) Features() terminal.Features {
	f := terminal.DefaultFeatures()
	f.AutoWrap = c.Terminal.AutoWrap
	f.BellEnabled = c.Terminal.Bell
	f.HistoryEnabled = c.Terminal.History
	return f
}

// Colors returns the parsed default colors. Invalid names fall back to
// the display defaults.
func (c *Config) Colors() (fg, bg display.Color) {
	fg, err := display.ParseColor(c.Display.Foreground)
	if err != nil {
		fg = display.DefaultForeground
	}
	bg, err = display.ParseColor(c.Display.Background)
	if err != nil {
		bg = display.DefaultBackground
	}
	return fg, bg
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return &ValidationError{Key: key, Message: "not an integer", Value: value}
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return &ValidationError{Key: key, Message: "not a boolean", Value: value}
	}
	*dst = b
	return nil
}
