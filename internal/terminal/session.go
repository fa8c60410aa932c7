package terminal

import "fmt"

// Session field limits, including room for a terminator.
const (
	MaxUsernameLength = 32
	MaxShellLength    = 64
	MaxWorkDirLength  = 256
)

// Session is a login bound to a terminal.
type Session struct {
	ID         uint32
	UserID     uint32
	GroupID    uint32
	Username   string
	WorkingDir string
	Shell      string
	TerminalID string
	Minor      int
}

// SessionCreate starts a session on t. Session IDs increase from 1 and
// are never reused. The group ID equals the user ID and the working
// directory starts at "/".
func (r *Registry) SessionCreate(t *Terminal, userID uint32, username, shell string) (Session, error) {
	if username == "" {
		return Session{}, ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lookupLocked(t); err != nil {
		return Session{}, err
	}

	s := &Session{
		ID:         r.nextSessionID,
		UserID:     userID,
		GroupID:    userID,
		Username:   truncate(username, MaxUsernameLength-1),
		WorkingDir: "/",
		Shell:      truncate(shell, MaxShellLength-1),
		TerminalID: t.id,
		Minor:      t.minor,
	}
	r.nextSessionID++
	t.sessionID = s.ID
	r.sessions = append(r.sessions, s)

	r.publishEvent(EventSessionCreated, map[string]any{
		"session":  s.ID,
		"user":     s.Username,
		"terminal": t.name,
	})
	return *s, nil
}

// SessionDestroy ends a session.
func (r *Registry) SessionDestroy(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sessions {
		if s.ID != id {
			continue
		}
		r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
		r.detachSessionLocked(s)
		return nil
	}
	return fmt.Errorf("session %d: %w", id, ErrNotFound)
}

// FindSession returns the session with the given ID.
func (r *Registry) FindSession(id uint32) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			return *s, true
		}
	}
	return Session{}, false
}

// Sessions returns every live session ordered by ID.
func (r *Registry) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = *s
	}
	return out
}

// SessionSetWorkDir changes a session's working directory.
func (r *Registry) SessionSetWorkDir(id uint32, path string) error {
	if path == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			s.WorkingDir = truncate(path, MaxWorkDirLength-1)
			return nil
		}
	}
	return fmt.Errorf("session %d: %w", id, ErrNotFound)
}

// endSessionsLocked ends every session bound to t.
func (r *Registry) endSessionsLocked(t *Terminal) {
	kept := r.sessions[:0]
	for _, s := range r.sessions {
		if s.TerminalID == t.id {
			r.detachSessionLocked(s)
			continue
		}
		kept = append(kept, s)
	}
	clear(r.sessions[len(kept):])
	r.sessions = kept
}

func (r *Registry) detachSessionLocked(s *Session) {
	for _, t := range r.slots {
		if t != nil && t.id == s.TerminalID && t.sessionID == s.ID {
			t.sessionID = 0
		}
	}
	r.publishEvent(EventSessionEnded, map[string]any{
		"session": s.ID,
		"user":    s.Username,
	})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
