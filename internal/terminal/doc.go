// Package terminal layers virtual terminals over the TTY devices.
//
// A Terminal binds a name, a type and a set of display features to one
// TTY minor. Bytes written to a terminal pass through an escape-sequence
// Parser first: sequences it recognises are interpreted and never reach
// the device, everything else is forwarded to the device's output path.
//
// # Architecture
//
//   - Parser: None → Escape → CSI state machine with a bounded buffer
//   - Registry: fixed terminal slots, active and focused terminal, sessions
//   - History: scrollback lines captured from the display
//
// # Usage
//
//	reg := terminal.NewRegistry(ttys,
//	    terminal.WithBackend(console),
//	    terminal.WithScreen(screen),
//	)
//	console, _ := reg.Create("console", terminal.TypeConsole, 0)
//	reg.Write(console, []byte("\x1b[2J\x1b[32mready\x1b[0m\n"))
//
// # Escape sequences
//
// The supported CSI final bytes are A, B, C and D (relative moves), H
// (absolute position, 1-based), J (clear screen with parameter 2), K
// (reserved) and m (colors 0, 30-37, 40-47). Missing parameters default
// to 1. A BEL outside a sequence rings the terminal bell.
package terminal
