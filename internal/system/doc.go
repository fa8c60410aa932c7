// Package system assembles the terminal I/O pipeline.
//
// A System owns one instance of every component: the interrupt controller
// and port bus, the keyboard driver, the display surface, the TTY manager
// and the terminal registry. Components receive their collaborators
// explicitly; nothing is stored in package globals, so several systems
// can run side by side in one process (tests do this).
//
// Lifecycle:
//
//	sys, err := system.New(cfg)
//	if err != nil { ... }
//	if err := sys.Init(); err != nil { ... }
//	defer sys.Shutdown()
//
// Init brings the keyboard up, installs its interrupt handler, registers
// the TTY devices and creates the configured terminals. The first
// configured terminal is focused.
package system
