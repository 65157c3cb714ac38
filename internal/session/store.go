package session

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is an in-memory session table with sliding TTL and LRU eviction.
// Values are copied in and out, so callers never share a Session.
type Store struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time

	stopCleanup  chan struct{}
	cleanupDone  chan struct{}
	shutdownOnce sync.Once
}

type entry struct {
	session   Session
	expiresAt time.Time
}

// NewStore creates a store holding at most maxSize sessions, each expiring
// ttl after its last use.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Create registers a new unauthenticated session.
func (s *Store) Create() Session {
	sess := Session{ID: uuid.NewString(), CreatedAt: s.now()}
	s.Save(sess)
	return sess
}

// Get returns the session with the given id and extends its lifetime.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return Session{}, false
	}

	e := elem.Value.(*entry)
	now := s.now()
	if now.After(e.expiresAt) {
		s.removeElement(elem)
		return Session{}, false
	}

	e.expiresAt = now.Add(s.ttl)
	s.lru.MoveToFront(elem)
	return e.session.clone(), true
}

// Save stores sess under its ID, replacing any previous value.
func (s *Store) Save(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{session: sess.clone(), expiresAt: s.now().Add(s.ttl)}

	if elem, ok := s.items[sess.ID]; ok {
		elem.Value = e
		s.lru.MoveToFront(elem)
		return
	}

	s.items[sess.ID] = s.lru.PushFront(e)

	if s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.removeElement(oldest)
		}
	}
}

// Destroy ends the session with the given id.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[id]; ok {
		s.removeElement(elem)
	}
}

// Rotate moves sess to a fresh identifier, dropping the old one.
func (s *Store) Rotate(sess Session) Session {
	s.Destroy(sess.ID)
	sess.ID = uuid.NewString()
	s.Save(sess)
	return sess
}

// Len returns the number of live and not yet swept sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CleanExpired removes every expired session and returns how many went.
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		s.removeElement(elem)
	}
	return len(expired)
}

// StartCleanup sweeps expired sessions every interval until Stop is called.
func (s *Store) StartCleanup(interval time.Duration) {
	s.stopCleanup = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.CleanExpired(); n > 0 {
					slog.Debug("Session cleanup completed", "sessions_removed", n)
				}
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

// Stop halts the cleanup goroutine, if one was started.
func (s *Store) Stop() {
	s.shutdownOnce.Do(func() {
		if s.stopCleanup != nil {
			close(s.stopCleanup)
			<-s.cleanupDone
		}
	})
}

func (s *Store) removeElement(elem *list.Element) {
	delete(s.items, elem.Value.(*entry).session.ID)
	s.lru.Remove(elem)
}
