package domain

import "time"

// AuthSession is a server-side login session referenced by an opaque
// cookie token.
type AuthSession struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *AuthSession) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
