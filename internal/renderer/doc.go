// Package renderer presents a display surface on a host terminal.
//
// The Presenter copies the text grid of a display.Surface into a tcell
// screen, mapping each VGA attribute to a true-color style, and mirrors
// the hardware cursor. It redraws only when the surface version changes.
package renderer
