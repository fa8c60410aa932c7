// Package script runs Lua scripts against a running terminal system.
//
// Scripts see three global tables:
//
//	term     terminals: create, destroy, switch, write, read, colors, ...
//	session  login sessions bound to terminals
//	tty      raw TTY devices by minor number
//
// A typical init script:
//
//	term.create("log", "virtual", 1)
//	term.write("log", "\27[32mready\27[0m\n")
//	local id = session.create("console", 0, "root", "/bin/sh")
//	session.cd(id, "/home/root")
//
// Go errors surface as Lua errors, so scripts can use pcall. When the
// runtime is sandboxed, only the base, table, string and math libraries
// are available and file loading functions are removed.
package script
