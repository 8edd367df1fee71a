package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
)

const SessionCookie = "survey_session"

var ErrNoSession = errors.New("no survey session")

// Sessions binds a survey session id to the browser through a signed cookie.
// The token only carries the id; the wizard state stays on the server.
type Sessions struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{
		auth: jwtauth.New("HS256", []byte(secret), nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

func (s *Sessions) Issue(w http.ResponseWriter, id string) error {
	claims := map[string]interface{}{"sid": id}
	jwtauth.SetExpiry(claims, s.now().Add(s.ttl))
	_, token, err := s.auth.Encode(claims)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     SessionCookie,
		Value:    token,
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session id carried by r, or ErrNoSession when the cookie
// is missing, forged or expired.
func (s *Sessions) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", ErrNoSession
	}
	token, err := s.auth.Decode(cookie.Value)
	if err != nil || token == nil {
		return "", ErrNoSession
	}
	if exp := token.Expiration(); exp.IsZero() || !s.now().Before(exp) {
		return "", ErrNoSession
	}
	sid, ok := token.Get("sid")
	if !ok {
		return "", ErrNoSession
	}
	id, ok := sid.(string)
	if !ok || id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Path:   "/",
		Name:   SessionCookie,
		Value:  "",
		MaxAge: -1,
	})
}
