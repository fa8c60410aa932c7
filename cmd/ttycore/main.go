// Package main runs ttycore's simulated console on the host terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/ttycore/internal/config"
	"github.com/dshills/ttycore/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the command line settings.
type options struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	LogFile    string
	ScriptPath string
	Watch      bool
	DumpFormat string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if err := applyFlags(cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.DumpFormat != "" {
		return dumpConfig(cfg, opts.DumpFormat)
	}

	logOut, closeLog, err := openLog(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
		return 1
	}
	defer closeLog()

	_, logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
		Prefix: "ttycore",
	})

	c, err := newConsole(cfg, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer c.Close()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		<-signals
		c.Stop()
	}()

	if err := c.Run(); err != nil {
		if errors.Is(err, errQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml or .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.LogFormat, "log-format", "", "Log format (text, json)")
	flag.StringVar(&opts.LogFile, "log-file", "", "Write logs to this file")
	flag.StringVar(&opts.ScriptPath, "script", "", "Lua script to run after boot")
	flag.StringVar(&opts.ScriptPath, "s", "", "Lua script to run after boot (shorthand)")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload the configuration file when it changes")
	flag.StringVar(&opts.DumpFormat, "dump-config", "", "Print the effective configuration (toml, yaml) and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ttycore - simulated console, keyboard and TTY subsystem\n\n")
		fmt.Fprintf(os.Stderr, "Usage: ttycore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  Alt+F1..F8                  Switch terminal\n")
		fmt.Fprintf(os.Stderr, "  Ctrl+]                      Quit\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ttycore                     Boot with the built-in configuration\n")
		fmt.Fprintf(os.Stderr, "  ttycore -c ttycore.toml -watch\n")
		fmt.Fprintf(os.Stderr, "                              Boot from a file and follow edits\n")
		fmt.Fprintf(os.Stderr, "  ttycore -s init.lua         Run a Lua script after boot\n")
		fmt.Fprintf(os.Stderr, "  ttycore -dump-config yaml   Show the effective configuration\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("ttycore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.Watch && opts.ConfigPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -watch requires -config\n")
		os.Exit(2)
	}

	return opts
}

// applyFlags overlays command line settings on cfg.
func applyFlags(cfg *config.Config, opts options) error {
	overrides := []struct{ key, value string }{
		{"log.level", opts.LogLevel},
		{"log.format", opts.LogFormat},
		{"log.file", opts.LogFile},
		{"script.init", opts.ScriptPath},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		if err := cfg.Set(o.key, o.value); err != nil {
			return fmt.Errorf("flag for %s: %w", o.key, err)
		}
	}
	return cfg.Validate()
}

func dumpConfig(cfg *config.Config, name string) int {
	var format config.Format
	switch name {
	case "toml":
		format = config.FormatTOML
	case "yaml", "yml":
		format = config.FormatYAML
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config format %q\n", name)
		return 2
	}
	data, err := cfg.Encode(format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

// openLog returns the log destination. The host terminal belongs to the
// screen while running, so logs are discarded unless a file is named.
func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
