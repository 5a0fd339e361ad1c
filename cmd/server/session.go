package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
)

const (
	sessionCookieName = "plmcost_session"
	sessionIdleTTL    = 24 * time.Hour
)

// session is the per-browser calculator state.
type session struct {
	Form      form.State
	Overrides costing.Overrides
	Rejected  []costing.MetricKey
	Current   *analysis.Outcome
	Error     string

	lastSeen time.Time
}

type sessionKey struct{}

// sessionStore keeps sessions in memory, keyed by a signed uuid cookie.
type sessionStore struct {
	secret []byte

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore(secret string) *sessionStore {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	return &sessionStore{
		secret:   key,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (s *sessionStore) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (s *sessionStore) verify(value string) (string, bool) {
	id, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}

	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, expected) {
		return "", false
	}
	return id, true
}

// get returns a snapshot of the session. Unknown ids get a fresh session.
func (s *sessionStore) get(id string) session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{Form: form.Default()}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()
	return *sess
}

// update applies fn to the stored session under the lock.
func (s *sessionStore) update(id string, fn func(*session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{Form: form.Default()}
		s.sessions[id] = sess
	}
	fn(sess)
	sess.lastSeen = s.now()
}

// prune drops sessions idle for longer than sessionIdleTTL.
func (s *sessionStore) prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-sessionIdleTTL)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// middleware makes sure every request carries a valid session cookie and
// stores the session id in the request context.
func (s *sessionStore) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			id, _ = s.verify(cookie.Value)
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    s.sign(id),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}
