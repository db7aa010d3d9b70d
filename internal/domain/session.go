package domain

import "time"

// TokenKey is the session key holding the bearer credential.
const TokenKey = "userToken"

// Session is a browser session's scoped key/value storage.
type Session struct {
	ID        string
	Values    map[string]string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credential returns the stored bearer token, if any.
func (s *Session) Credential() (Credential, bool) {
	if s == nil {
		return "", false
	}
	token, ok := s.Values[TokenKey]
	if !ok || token == "" {
		return "", false
	}
	return Credential(token), true
}
