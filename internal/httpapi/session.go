package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"

	"surveycore/pkg/domain"
)

// sessionCookie names the browser session cookie.
const sessionCookie = "surveycore_session"

// browserSession pairs one survey session with a lock serializing the
// handler requests that mutate it.
type browserSession struct {
	mu   sync.Mutex
	sess *domain.Session
}

// sessionRegistry maps cookie tokens to in-memory survey sessions. State
// lives for the process lifetime; resume-after-restart goes through the
// participant ID instead.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*browserSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*browserSession)}
}

func newSessionToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// create registers sess under a fresh token and returns the token.
func (r *sessionRegistry) create(sess *domain.Session) string {
	token := newSessionToken()
	r.mu.Lock()
	r.sessions[token] = &browserSession{sess: sess}
	r.mu.Unlock()
	return token
}

// lookup resolves the request cookie to its registered session.
func (r *sessionRegistry) lookup(req *http.Request) (*browserSession, bool) {
	cookie, err := req.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	bs, ok := r.sessions[cookie.Value]
	return bs, ok
}

// drop removes the request's session, if any.
func (r *sessionRegistry) drop(req *http.Request) {
	cookie, err := req.Cookie(sessionCookie)
	if err != nil {
		return
	}
	r.mu.Lock()
	delete(r.sessions, cookie.Value)
	r.mu.Unlock()
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
