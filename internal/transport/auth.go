package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource provides the opaque bearer token attached to every request
// and to the socket handshake. The token lifecycle (login/refresh) lives
// outside this SDK.
type TokenSource interface {
	// Token returns the current bearer token, or an error when no
	// authenticated identity exists.
	Token() (string, error)
	// Clear drops the held credentials (401 handling, logout).
	Clear()
}

// ErrNoToken is returned by a TokenSource with no credentials.
var ErrNoToken = errors.New("transport: no bearer token available")

// StaticTokenSource holds a fixed bearer token. When the token is a JWT,
// expiry is checked locally so the socket layer can tear down before the
// server would reject the handshake anyway.
type StaticTokenSource struct {
	mu    sync.Mutex
	token string
}

// NewStaticTokenSource creates a TokenSource around a raw bearer token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	if exp, ok := jwtExpiry(s.token); ok && time.Now().After(exp) {
		return "", &Error{Kind: KindAuth, Code: ErrTokenExpired, Message: "bearer token expired"}
	}
	return s.token, nil
}

func (s *StaticTokenSource) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Set replaces the held token (e.g. after an external refresh).
func (s *StaticTokenSource) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// jwtExpiry extracts the exp claim without verifying the signature — the
// client does not hold the signing secret; the server remains the
// authority. Non-JWT tokens report no expiry.
func jwtExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
