package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/terminal"
	"github.com/dshills/ttycore/internal/tty"
)

// readChunk is the most a single term.read or tty.read returns.
const readChunk = 4096

func (r *Runtime) register() {
	r.module("term", map[string]lua.LGFunction{
		"create":      r.termCreate,
		"destroy":     r.termDestroy,
		"switch":      r.termSwitch,
		"focus":       r.termFocus,
		"focused":     r.termFocused,
		"active":      r.termActive,
		"write":       r.termWrite,
		"read":        r.termRead,
		"clear":       r.termClear,
		"colors":      r.termColors,
		"move":        r.termMove,
		"cursor":      r.termCursor,
		"show_cursor": r.termShowCursor,
		"hide_cursor": r.termHideCursor,
		"bell":        r.termBell,
		"suspend":     r.termSuspend,
		"resume":      r.termResume,
		"resize":      r.termResize,
		"info":        r.termInfo,
		"list":        r.termList,
		"history":     r.termHistory,
	})
	r.module("session", map[string]lua.LGFunction{
		"create":  r.sessionCreate,
		"destroy": r.sessionDestroy,
		"get":     r.sessionGet,
		"list":    r.sessionList,
		"cd":      r.sessionCd,
	})
	r.module("tty", map[string]lua.LGFunction{
		"mode":    r.ttyMode,
		"config":  r.ttyConfig,
		"input":   r.ttyInput,
		"read":    r.ttyRead,
		"stats":   r.ttyStats,
		"current": r.ttyCurrent,
		"flush":   r.ttyFlush,
	})
}

func (r *Runtime) module(name string, funcs map[string]lua.LGFunction) {
	r.L.SetGlobal(name, r.L.SetFuncs(r.L.NewTable(), funcs))
}

// check raises a Lua error for a failed Go call.
func check(L *lua.LState, op string, err error) {
	if err != nil {
		L.RaiseError("%s: %v", op, err)
	}
}

// terminalArg resolves the terminal named by argument n.
func (r *Runtime) terminalArg(L *lua.LState, n int) *terminal.Terminal {
	name := L.CheckString(n)
	t := r.host.Terminals().FindByName(name)
	if t == nil {
		L.ArgError(n, "no terminal named "+name)
	}
	return t
}

func colorArg(L *lua.LState, n int) display.Color {
	c, err := display.ParseColor(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return c
}

// term.create(name, type, minor) -> id
func (r *Runtime) termCreate(L *lua.LState) int {
	name := L.CheckString(1)
	typ, err := terminal.ParseType(L.OptString(2, "virtual"))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	minor := L.CheckInt(3)
	t, err := r.host.Terminals().Create(name, typ, minor)
	check(L, "create", err)
	L.Push(lua.LString(t.ID()))
	return 1
}

// term.destroy(name)
func (r *Runtime) termDestroy(L *lua.LState) int {
	check(L, "destroy", r.host.Terminals().Destroy(r.terminalArg(L, 1)))
	return 0
}

// term.switch(name)
func (r *Runtime) termSwitch(L *lua.LState) int {
	check(L, "switch", r.host.Terminals().SwitchTo(r.terminalArg(L, 1)))
	return 0
}

// term.focus(name)
func (r *Runtime) termFocus(L *lua.LState) int {
	check(L, "focus", r.host.Terminals().SetFocus(r.terminalArg(L, 1)))
	return 0
}

// term.focused() -> name | nil
func (r *Runtime) termFocused(L *lua.LState) int {
	pushName(L, r.host.Terminals().Focused())
	return 1
}

// term.active() -> name | nil
func (r *Runtime) termActive(L *lua.LState) int {
	pushName(L, r.host.Terminals().Active())
	return 1
}

func pushName(L *lua.LState, t *terminal.Terminal) {
	if t == nil {
		L.Push(lua.LNil)
		return
	}
	L.Push(lua.LString(t.Name()))
}

// term.write(name, text) -> n
func (r *Runtime) termWrite(L *lua.LState) int {
	t := r.terminalArg(L, 1)
	n, err := r.host.Terminals().Write(t, []byte(L.CheckString(2)))
	check(L, "write", err)
	L.Push(lua.LNumber(n))
	return 1
}

// term.read(name) -> string
func (r *Runtime) termRead(L *lua.LState) int {
	t := r.terminalArg(L, 1)
	buf := make([]byte, readChunk)
	n, err := r.host.Terminals().Read(t, buf)
	check(L, "read", err)
	L.Push(lua.LString(buf[:n]))
	return 1
}

// term.clear(name)
func (r *Runtime) termClear(L *lua.LState) int {
	check(L, "clear", r.host.Terminals().ClearScreen(r.terminalArg(L, 1)))
	return 0
}

// term.colors(name, fg, bg)
func (r *Runtime) termColors(L *lua.LState) int {
	t := r.terminalArg(L, 1)
	check(L, "colors", r.host.Terminals().SetColors(t, colorArg(L, 2), colorArg(L, 3)))
	return 0
}

// term.move(name, x, y)
func (r *Runtime) termMove(L *lua.LState) int {
	t := r.terminalArg(L, 1)
	check(L, "move", r.host.Terminals().MoveCursor(t, L.CheckInt(2), L.CheckInt(3)))
	return 0
}

// term.cursor(name) -> x, y
func (r *Runtime) termCursor(L *lua.LState) int {
	pos, err := r.host.Terminals().Cursor(r.terminalArg(L, 1))
	check(L, "cursor", err)
	L.Push(lua.LNumber(pos.X))
	L.Push(lua.LNumber(pos.Y))
	return 2
}

// term.show_cursor(name)
func (r *Runtime) termShowCursor(L *lua.LState) int {
	check(L, "show_cursor", r.host.Terminals().ShowCursor(r.terminalArg(L, 1)))
	return 0
}

// term.hide_cursor(name)
func (r *Runtime) termHideCursor(L *lua.LState) int {
	check(L, "hide_cursor", r.host.Terminals().HideCursor(r.terminalArg(L, 1)))
	return 0
}

// term.bell(name)
func (r *Runtime) termBell(L *lua.LState) int {
	check(L, "bell", r.host.Terminals().Bell(r.terminalArg(L, 1)))
	return 0
}

// term.suspend(name)
func (r *Runtime) termSuspend(L *lua.LState) int {
	check(L, "suspend", r.host.Terminals().Suspend(r.terminalArg(L, 1)))
	return 0
}

// term.resume(name)
func (r *Runtime) termResume(L *lua.LState) int {
	check(L, "resume", r.host.Terminals().Resume(r.terminalArg(L, 1)))
	return 0
}

// term.resize(name, width, height)
func (r *Runtime) termResize(L *lua.LState) int {
	t := r.terminalArg(L, 1)
	check(L, "resize", r.host.Terminals().SetSize(t, L.CheckInt(2), L.CheckInt(3)))
	return 0
}

// term.info(name) -> table
func (r *Runtime) termInfo(L *lua.LState) int {
	info, err := r.host.Terminals().Info(r.terminalArg(L, 1))
	check(L, "info", err)
	L.Push(infoTable(L, info))
	return 1
}

// term.list() -> {table...}
func (r *Runtime) termList(L *lua.LState) int {
	tbl := L.NewTable()
	for _, info := range r.host.Terminals().List() {
		tbl.Append(infoTable(L, info))
	}
	L.Push(tbl)
	return 1
}

// term.history(name) -> {line...}
func (r *Runtime) termHistory(L *lua.LState) int {
	h, err := r.host.Terminals().History(r.terminalArg(L, 1))
	check(L, "history", err)
	tbl := L.NewTable()
	for _, line := range h.Lines() {
		tbl.Append(lua.LString(line))
	}
	L.Push(tbl)
	return 1
}

func infoTable(L *lua.LState, info terminal.Info) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(info.ID))
	t.RawSetString("name", lua.LString(info.Name))
	t.RawSetString("type", lua.LString(info.Type.String()))
	t.RawSetString("state", lua.LString(info.State.String()))
	t.RawSetString("slot", lua.LNumber(info.Slot))
	t.RawSetString("tty", lua.LNumber(info.Minor))
	t.RawSetString("width", lua.LNumber(info.Width))
	t.RawSetString("height", lua.LNumber(info.Height))
	t.RawSetString("fg", lua.LString(info.FG.String()))
	t.RawSetString("bg", lua.LString(info.BG.String()))
	t.RawSetString("session", lua.LNumber(info.SessionID))
	t.RawSetString("bells", lua.LNumber(info.Bells))
	return t
}

// session.create(term, uid, username, shell) -> id
func (r *Runtime) sessionCreate(L *lua.LState) int {
	t := r.terminalArg(L, 1)
	uid := L.CheckInt(2)
	if uid < 0 {
		L.ArgError(2, "uid must be non-negative")
	}
	s, err := r.host.Terminals().SessionCreate(t, uint32(uid), L.CheckString(3), L.OptString(4, ""))
	check(L, "session.create", err)
	L.Push(lua.LNumber(s.ID))
	return 1
}

func sessionIDArg(L *lua.LState, n int) uint32 {
	id := L.CheckInt(n)
	if id <= 0 {
		L.ArgError(n, "session id must be positive")
	}
	return uint32(id)
}

// session.destroy(id)
func (r *Runtime) sessionDestroy(L *lua.LState) int {
	check(L, "session.destroy", r.host.Terminals().SessionDestroy(sessionIDArg(L, 1)))
	return 0
}

// session.get(id) -> table | nil
func (r *Runtime) sessionGet(L *lua.LState) int {
	s, ok := r.host.Terminals().FindSession(sessionIDArg(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(sessionTable(L, s))
	return 1
}

// session.list() -> {table...}
func (r *Runtime) sessionList(L *lua.LState) int {
	tbl := L.NewTable()
	for _, s := range r.host.Terminals().Sessions() {
		tbl.Append(sessionTable(L, s))
	}
	L.Push(tbl)
	return 1
}

// session.cd(id, path)
func (r *Runtime) sessionCd(L *lua.LState) int {
	check(L, "session.cd", r.host.Terminals().SessionSetWorkDir(sessionIDArg(L, 1), L.CheckString(2)))
	return 0
}

func sessionTable(L *lua.LState, s terminal.Session) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LNumber(s.ID))
	t.RawSetString("uid", lua.LNumber(s.UserID))
	t.RawSetString("gid", lua.LNumber(s.GroupID))
	t.RawSetString("user", lua.LString(s.Username))
	t.RawSetString("cwd", lua.LString(s.WorkingDir))
	t.RawSetString("shell", lua.LString(s.Shell))
	t.RawSetString("terminal", lua.LString(s.TerminalID))
	t.RawSetString("tty", lua.LNumber(s.Minor))
	return t
}

// tty.mode(minor [, mode]) -> mode
func (r *Runtime) ttyMode(L *lua.LState) int {
	minor := L.CheckInt(1)
	if L.GetTop() >= 2 {
		mode, err := tty.ParseMode(L.CheckString(2))
		if err != nil {
			L.ArgError(2, err.Error())
		}
		check(L, "tty.mode", r.host.TTYs().SetMode(minor, mode))
	}
	mode, err := r.host.TTYs().Mode(minor)
	check(L, "tty.mode", err)
	L.Push(lua.LString(mode.String()))
	return 1
}

// tty.config(minor [, {echo=..., canonical=...}]) -> table
func (r *Runtime) ttyConfig(L *lua.LState) int {
	minor := L.CheckInt(1)
	cfg, err := r.host.TTYs().Config(minor)
	check(L, "tty.config", err)

	if L.GetTop() >= 2 {
		set := L.CheckTable(2)
		flag := func(key string, dst *bool) {
			if v := set.RawGetString(key); v != lua.LNil {
				*dst = lua.LVAsBool(v)
			}
		}
		flag("echo", &cfg.Echo)
		flag("canonical", &cfg.Canonical)
		flag("signals", &cfg.Signals)
		flag("crlf", &cfg.CRLF)
		flag("tab_expand", &cfg.TabExpand)
		flag("flow_control", &cfg.FlowControl)
		check(L, "tty.config", r.host.TTYs().SetConfig(minor, cfg))
	}

	t := L.NewTable()
	t.RawSetString("echo", lua.LBool(cfg.Echo))
	t.RawSetString("canonical", lua.LBool(cfg.Canonical))
	t.RawSetString("signals", lua.LBool(cfg.Signals))
	t.RawSetString("crlf", lua.LBool(cfg.CRLF))
	t.RawSetString("tab_expand", lua.LBool(cfg.TabExpand))
	t.RawSetString("flow_control", lua.LBool(cfg.FlowControl))
	L.Push(t)
	return 1
}

// tty.input(minor, text) feeds text as if typed.
func (r *Runtime) ttyInput(L *lua.LState) int {
	minor := L.CheckInt(1)
	text := L.CheckString(2)
	for i := 0; i < len(text); i++ {
		check(L, "tty.input", r.host.TTYs().InputChar(minor, text[i]))
	}
	return 0
}

// tty.read(minor) -> string
func (r *Runtime) ttyRead(L *lua.LState) int {
	buf := make([]byte, readChunk)
	n, err := r.host.TTYs().Read(L.CheckInt(1), buf)
	check(L, "tty.read", err)
	L.Push(lua.LString(buf[:n]))
	return 1
}

// tty.stats(minor) -> table
func (r *Runtime) ttyStats(L *lua.LState) int {
	st, err := r.host.TTYs().Stats(L.CheckInt(1))
	check(L, "tty.stats", err)
	t := L.NewTable()
	t.RawSetString("bytes_read", lua.LNumber(st.BytesRead))
	t.RawSetString("bytes_written", lua.LNumber(st.BytesWritten))
	t.RawSetString("lines", lua.LNumber(st.LinesProcessed))
	t.RawSetString("chars", lua.LNumber(st.CharactersProcessed))
	L.Push(t)
	return 1
}

// tty.current() -> minor
func (r *Runtime) ttyCurrent(L *lua.LState) int {
	L.Push(lua.LNumber(r.host.TTYs().Current()))
	return 1
}

// tty.flush(minor)
func (r *Runtime) ttyFlush(L *lua.LState) int {
	check(L, "tty.flush", r.host.TTYs().Flush(L.CheckInt(1)))
	return 0
}
