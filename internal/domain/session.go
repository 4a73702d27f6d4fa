package domain

import "time"

// Session is one authenticated browser context, stored server-side.
// The client only holds the identifier.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	UserEmail string    `json:"userEmail"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Anonymous reports whether the session references no user.
func (s *Session) Anonymous() bool {
	return s == nil || s.UserID == 0
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
