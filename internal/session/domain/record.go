package domain

import "time"

// SessionRecord is the durable mapping from a hashed access credential to its
// token pair and subject. AccessTokenHash is the only value that is ever
// handed to clients or used as a lookup key; the signed tokens stay
// server-side. Exactly one record exists per access hash at any time.
type SessionRecord struct {
	AccessToken     string
	AccessTokenHash string
	RefreshToken    string
	UserID          string
	IssuedAt        time.Time
	AccessExpiry    time.Time
	RefreshExpiry   time.Time
}
