package session

import "time"

// Record is the stored state of one session pair.
type Record struct {
	ID         string
	UserID     string
	Provider   string
	RememberMe bool

	AccessHash  [32]byte
	RefreshHash [32]byte

	CreatedAt        time.Time
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// AccessLive reports whether the access entry is unexpired at now.
func (r Record) AccessLive(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// Session is a freshly issued pair with plaintext tokens.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	Provider     string    `json:"provider,omitempty"`
	RememberMe   bool      `json:"rememberMe"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	// RefreshExpiresAt is when the refresh token stops being accepted.
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
