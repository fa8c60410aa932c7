package main

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/script"
	"github.com/dshills/ttycore/internal/system"
	"github.com/dshills/ttycore/internal/terminal"
	"github.com/dshills/ttycore/internal/tty"
)

// shell is a small line-oriented command loop run on every terminal so
// the console has something to talk to.
type shell struct {
	sys     *system.System
	reg     *terminal.Registry
	scripts *script.Runtime
	logger  *logrus.Entry
	lines   map[string]*lineState
	buf     []byte
}

// lineState is the shell's per-terminal input. Terminals not on the
// display reject writes, so the greeting waits until one succeeds.
type lineState struct {
	bytes.Buffer
	greeted bool
}

type command struct {
	usage string
	run   func(sh *shell, t *terminal.Terminal, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help", (*shell).help},
		"echo":    {"echo [text...]", (*shell).echo},
		"clear":   {"clear", (*shell).clear},
		"color":   {"color <fg> [bg]", (*shell).color},
		"login":   {"login <user> [uid]", (*shell).login},
		"logout":  {"logout", (*shell).logout},
		"cd":      {"cd <dir>", (*shell).cd},
		"pwd":     {"pwd", (*shell).pwd},
		"who":     {"who", (*shell).who},
		"terms":   {"terms", (*shell).terms},
		"switch":  {"switch <name>", (*shell).switchTo},
		"history": {"history [n]", (*shell).history},
		"bell":    {"bell", (*shell).bell},
		"stty":    {"stty [raw|cooked]", (*shell).stty},
		"lua":     {"lua <code>", (*shell).lua},
	}
}

func newShell(sys *system.System, scripts *script.Runtime, logger *logrus.Entry) *shell {
	return &shell{
		sys:     sys,
		reg:     sys.Terminals(),
		scripts: scripts,
		logger:  logger,
		lines:   make(map[string]*lineState),
		buf:     make([]byte, 256),
	}
}

// Start greets every terminal that accepts output.
func (sh *shell) Start() {
	for _, info := range sh.reg.List() {
		if t := sh.reg.FindByID(info.ID); t != nil {
			sh.attach(t)
		}
	}
}

func (sh *shell) attach(t *terminal.Terminal) *lineState {
	line, ok := sh.lines[t.ID()]
	if !ok {
		line = &lineState{}
		sh.lines[t.ID()] = line
	}
	if !line.greeted {
		_, err := sh.reg.Printf(t, "%s (%s) on tty%d\nType 'help' for commands.\n", t.Name(), t.Type(), t.Minor())
		if err != nil {
			return line
		}
		line.greeted = true
		sh.prompt(t)
	}
	return line
}

// Poll reads pending input from every terminal and runs complete lines.
func (sh *shell) Poll() {
	live := make(map[string]bool)
	for _, info := range sh.reg.List() {
		live[info.ID] = true
		t := sh.reg.FindByID(info.ID)
		if t == nil {
			continue
		}
		line := sh.attach(t)
		n, err := sh.reg.Read(t, sh.buf)
		if err != nil || n == 0 {
			continue
		}
		for _, b := range sh.buf[:n] {
			if b != '\n' && b != '\r' {
				line.WriteByte(b)
				continue
			}
			text := line.String()
			line.Reset()
			sh.exec(t, text)
			sh.prompt(t)
		}
	}
	for id := range sh.lines {
		if !live[id] {
			delete(sh.lines, id)
		}
	}
}

// Printf writes to the focused terminal.
func (sh *shell) Printf(format string, args ...any) {
	if t := sh.reg.Focused(); t != nil {
		sh.reg.Printf(t, format, args...)
	}
}

func (sh *shell) prompt(t *terminal.Terminal) {
	info, err := sh.reg.Info(t)
	if err != nil {
		return
	}
	if s, ok := sh.reg.FindSession(info.SessionID); ok {
		sh.reg.Printf(t, "%s@%s:%s$ ", s.Username, t.Name(), s.WorkingDir)
		return
	}
	sh.reg.Printf(t, "%s$ ", t.Name())
}

func (sh *shell) exec(t *terminal.Terminal, text string) {
	args := strings.Fields(text)
	if len(args) == 0 {
		return
	}
	cmd, ok := commands[args[0]]
	if !ok {
		sh.reg.Printf(t, "%s: command not found\n", args[0])
		return
	}
	if err := cmd.run(sh, t, args[1:]); err != nil {
		sh.logger.WithError(err).WithField("command", args[0]).Debug("command failed")
		sh.reg.Printf(t, "%s: %v\n", args[0], err)
	}
}

func (sh *shell) session(t *terminal.Terminal) (terminal.Session, bool) {
	info, err := sh.reg.Info(t)
	if err != nil {
		return terminal.Session{}, false
	}
	return sh.reg.FindSession(info.SessionID)
}

func (sh *shell) help(t *terminal.Terminal, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		sh.reg.Printf(t, "  %s\n", commands[name].usage)
	}
	sh.reg.Printf(t, "Alt+F1..F8 switches terminals.\n")
	return nil
}

func (sh *shell) echo(t *terminal.Terminal, args []string) error {
	_, err := sh.reg.Printf(t, "%s\n", strings.Join(args, " "))
	return err
}

func (sh *shell) clear(t *terminal.Terminal, _ []string) error {
	return sh.reg.ClearScreen(t)
}

func (sh *shell) color(t *terminal.Terminal, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", commands["color"].usage)
	}
	info, err := sh.reg.Info(t)
	if err != nil {
		return err
	}
	fg, err := display.ParseColor(args[0])
	if err != nil {
		return err
	}
	bg := info.BG
	if len(args) > 1 {
		if bg, err = display.ParseColor(args[1]); err != nil {
			return err
		}
	}
	return sh.reg.SetColors(t, fg, bg)
}

func (sh *shell) login(t *terminal.Terminal, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", commands["login"].usage)
	}
	var uid uint64 = 1000
	if len(args) > 1 {
		var err error
		if uid, err = strconv.ParseUint(args[1], 10, 32); err != nil {
			return fmt.Errorf("bad uid %q", args[1])
		}
	}
	if s, ok := sh.session(t); ok {
		if err := sh.reg.SessionDestroy(s.ID); err != nil {
			return err
		}
	}
	s, err := sh.reg.SessionCreate(t, uint32(uid), args[0], "ttysh")
	if err != nil {
		return err
	}
	_, err = sh.reg.Printf(t, "session %d started for %s\n", s.ID, s.Username)
	return err
}

func (sh *shell) logout(t *terminal.Terminal, _ []string) error {
	s, ok := sh.session(t)
	if !ok {
		return fmt.Errorf("not logged in")
	}
	return sh.reg.SessionDestroy(s.ID)
}

func (sh *shell) cd(t *terminal.Terminal, args []string) error {
	s, ok := sh.session(t)
	if !ok {
		return fmt.Errorf("not logged in")
	}
	dir := "/"
	if len(args) > 0 {
		dir = args[0]
	}
	if !strings.HasPrefix(dir, "/") {
		dir = strings.TrimSuffix(s.WorkingDir, "/") + "/" + dir
	}
	return sh.reg.SessionSetWorkDir(s.ID, dir)
}

func (sh *shell) pwd(t *terminal.Terminal, _ []string) error {
	dir := "/"
	if s, ok := sh.session(t); ok {
		dir = s.WorkingDir
	}
	_, err := sh.reg.Printf(t, "%s\n", dir)
	return err
}

func (sh *shell) who(t *terminal.Terminal, _ []string) error {
	for _, s := range sh.reg.Sessions() {
		sh.reg.Printf(t, "%-4d %-12s tty%d %s\n", s.ID, s.Username, s.Minor, s.WorkingDir)
	}
	return nil
}

func (sh *shell) terms(t *terminal.Terminal, _ []string) error {
	for i, info := range sh.reg.List() {
		sh.reg.Printf(t, "F%d %-12s %-8s tty%d %s\n", i+1, info.Name, info.Type, info.Minor, info.State)
	}
	return nil
}

func (sh *shell) switchTo(t *terminal.Terminal, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", commands["switch"].usage)
	}
	target := sh.reg.FindByName(args[0])
	if target == nil {
		return fmt.Errorf("%s: %w", args[0], terminal.ErrNotFound)
	}
	return sh.reg.SwitchTo(target)
}

func (sh *shell) history(t *terminal.Terminal, args []string) error {
	h, err := sh.reg.History(t)
	if err != nil {
		return err
	}
	lines := h.Lines()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("bad count %q", args[0])
		}
		if n < len(lines) {
			lines = lines[len(lines)-n:]
		}
	}
	for _, line := range lines {
		sh.reg.Printf(t, "%s\n", strings.TrimRight(line, " "))
	}
	return nil
}

func (sh *shell) bell(t *terminal.Terminal, _ []string) error {
	return sh.reg.Bell(t)
}

func (sh *shell) stty(t *terminal.Terminal, args []string) error {
	ttys := sh.sys.TTYs()
	if len(args) == 0 {
		mode, err := ttys.Mode(t.Minor())
		if err != nil {
			return err
		}
		_, err = sh.reg.Printf(t, "%s\n", mode)
		return err
	}
	mode, err := tty.ParseMode(args[0])
	if err != nil {
		return err
	}
	return ttys.SetMode(t.Minor(), mode)
}

func (sh *shell) lua(_ *terminal.Terminal, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", commands["lua"].usage)
	}
	return sh.scripts.DoString(context.Background(), strings.Join(args, " "))
}
