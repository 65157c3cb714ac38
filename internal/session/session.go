// Package session keeps per-browser interactive state in process memory.
//
// A Session holds the authentication flag of the access gate and the flash
// messages shown after a redirect. Nothing here is persisted: a restart ends
// every session.
package session

import "time"

// FlashKind selects how a flash message is styled.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message rendered on the next page view.
type Flash struct {
	Kind    FlashKind
	Message string
}

// Session is the state of one interactive connection.
type Session struct {
	ID            string
	Authenticated bool
	CreatedAt     time.Time
	Flashes       []Flash
}

// AddFlash queues a message for the next render.
func (s *Session) AddFlash(kind FlashKind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
}

// PopFlashes returns the queued messages and clears the queue.
func (s *Session) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

func (s Session) clone() Session {
	if s.Flashes != nil {
		s.Flashes = append([]Flash(nil), s.Flashes...)
	}
	return s
}
