// Package auth is a sign-in stub: any non-empty username and password is
// accepted. It hands out opaque session tokens for the HTTP layer.
package auth

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// DefaultLicense is assigned to every operator until real accounts exist.
const DefaultLicense = "ABC123456"

var ErrMissingCredentials = errors.New("username and password are required")

type Sessions struct {
	mu     sync.RWMutex
	tokens map[string]domain.Operator
}

func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]domain.Operator)}
}

// Login signs in username and returns the operator and a new session token.
func (s *Sessions) Login(username, password string) (domain.Operator, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Operator{}, "", ErrMissingCredentials
	}

	op := domain.Operator{Name: username, License: DefaultLicense}
	token := uuid.NewString()

	s.mu.Lock()
	s.tokens[token] = op
	s.mu.Unlock()
	return op, token, nil
}

func (s *Sessions) Lookup(token string) (domain.Operator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.tokens[token]
	return op, ok
}

func (s *Sessions) Logout(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
