package display

// Snapshot is a saved copy of a surface's contents and cursor.
type Snapshot struct {
	Width, Height int
	Cells         []Cell
	X, Y          int
	Attr          Attr
	CursorVisible bool
}

// Snapshot captures the grid, cursor and drawing attribute.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Width:         s.width,
		Height:        s.height,
		Cells:         append([]Cell(nil), s.cells...),
		X:             s.x,
		Y:             s.y,
		Attr:          s.attr,
		CursorVisible: s.cursorVisible,
	}
}

// Restore replaces the surface state with snap. A snapshot taken from a
// surface of a different size only restores the cursor and attribute,
// clamped, over a cleared grid.
func (s *Surface) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attr = snap.Attr
	if snap.Width == s.width && snap.Height == s.height && len(snap.Cells) == len(s.cells) {
		copy(s.cells, snap.Cells)
	} else {
		s.fillLocked(s.cells)
	}
	s.x = clamp(snap.X, 0, s.width-1)
	s.y = clamp(snap.Y, 0, s.height-1)
	s.cursorVisible = snap.CursorVisible
	if s.cursor != nil {
		s.cursor.SetCursorVisible(s.cursorVisible)
	}
	s.syncCursorLocked()
}
