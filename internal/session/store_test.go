package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(max int, ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(max, ttl)
	s.now = clock.now
	return s, clock
}

func TestCreateStartsUnauthenticated(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	sess := s.Create()
	if sess.ID == "" {
		t.Fatalf("expected an id")
	}
	if sess.Authenticated {
		t.Fatalf("new session must not be authenticated")
	}
	got, ok := s.Get(sess.ID)
	if !ok || got.ID != sess.ID {
		t.Fatalf("created session not found")
	}
}

func TestSaveIsCopied(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	sess := s.Create()
	sess.AddFlash(FlashSuccess, "hi")
	s.Save(sess)

	sess.Flashes[0].Message = "changed"
	sess.Authenticated = true

	got, _ := s.Get(sess.ID)
	if got.Authenticated {
		t.Fatalf("store shares state with caller")
	}
	if len(got.Flashes) != 1 || got.Flashes[0].Message != "hi" {
		t.Fatalf("flashes not copied: %+v", got.Flashes)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	a := s.Create()
	b := s.Create()

	a.Authenticated = true
	s.Save(a)

	got, _ := s.Get(b.ID)
	if got.Authenticated {
		t.Fatalf("authentication leaked across sessions")
	}
}

func TestSlidingExpiry(t *testing.T) {
	s, clock := newTestStore(10, time.Hour)
	sess := s.Create()

	clock.advance(50 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatalf("session expired too early")
	}
	clock.advance(50 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatalf("get should have extended lifetime")
	}
	clock.advance(61 * time.Minute)
	if _, ok := s.Get(sess.ID); ok {
		t.Fatalf("expected session to expire")
	}
}

func TestEvictionAndCleanup(t *testing.T) {
	s, clock := newTestStore(2, time.Minute)
	first := s.Create()
	s.Create()
	s.Create()

	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}
	if _, ok := s.Get(first.ID); ok {
		t.Fatalf("oldest session should have been evicted")
	}

	clock.advance(2 * time.Minute)
	if n := s.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 expired, got %d", n)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestRotateAndDestroy(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	sess := s.Create()
	sess.Authenticated = true

	rotated := s.Rotate(sess)
	if rotated.ID == sess.ID {
		t.Fatalf("rotate kept the id")
	}
	if _, ok := s.Get(sess.ID); ok {
		t.Fatalf("old id still valid")
	}
	got, ok := s.Get(rotated.ID)
	if !ok || !got.Authenticated {
		t.Fatalf("rotated session lost state")
	}

	s.Destroy(rotated.ID)
	if _, ok := s.Get(rotated.ID); ok {
		t.Fatalf("destroyed session still present")
	}
}

func TestPopFlashes(t *testing.T) {
	var sess Session
	sess.AddFlash(FlashWarning, "a")
	sess.AddFlash(FlashError, "b")
	if got := sess.PopFlashes(); len(got) != 2 {
		t.Fatalf("expected 2 flashes, got %d", len(got))
	}
	if got := sess.PopFlashes(); len(got) != 0 {
		t.Fatalf("flashes not cleared")
	}
}

func TestStartStopCleanup(t *testing.T) {
	s := NewStore(10, time.Millisecond)
	s.StartCleanup(5 * time.Millisecond)
	s.Create()
	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()
	if s.Len() != 0 {
		t.Fatalf("cleanup goroutine did not sweep")
	}
}

func TestManagerCookieRoundTrip(t *testing.T) {
	store, _ := newTestStore(10, time.Hour)
	m := NewManager(store, CookieConfig{Name: "sid"})

	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		seen.Authenticated = true
		m.Save(seen)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	firstID := seen.ID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	var again *Session
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		again = FromContext(r.Context())
	})).ServeHTTP(rr, req)

	if again.ID != firstID || !again.Authenticated {
		t.Fatalf("session not restored from cookie: %+v", again)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("existing session should not reissue cookie")
	}

	rr = httptest.NewRecorder()
	m.End(rr, again)
	if c := rr.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("end should expire cookie, got %+v", c)
	}
	if _, ok := store.Get(firstID); ok {
		t.Fatalf("ended session still stored")
	}
}
