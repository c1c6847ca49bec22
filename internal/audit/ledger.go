package audit

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries a Ledger keeps by default.
const DefaultCapacity = 1000

// Event names recorded by the engine.
const (
	EventUserRegistered         = "USER_REGISTERED"
	EventLoginSuccess           = "LOGIN_SUCCESS"
	EventLoginFailed            = "LOGIN_FAILED"
	EventLogout                 = "LOGOUT"
	EventEmailVerified          = "EMAIL_VERIFIED"
	EventPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	EventPasswordResetSuccess   = "PASSWORD_RESET_SUCCESS"
	EventPasswordChanged        = "PASSWORD_CHANGED"
	EventMFAEnabled             = "MFA_ENABLED"
	EventMFADisabled            = "MFA_DISABLED"
	EventOAuthLogin             = "OAUTH_LOGIN"
	EventAccountDeleted         = "ACCOUNT_DELETED"
)

// Entry is one immutable security-log record.
type Entry struct {
	Event     string    `json:"event"`
	Email     string    `json:"email"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	IP        string    `json:"ip,omitempty"`
}

// Ledger is an append-only FIFO of entries. Once full, each Record evicts
// the oldest entry.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	size    int
}

// NewLedger returns a Ledger holding at most capacity entries
// (DefaultCapacity when capacity <= 0).
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{entries: make([]Entry, capacity)}
}

// Record appends e.
func (l *Ledger) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := (l.head + l.size) % len(l.entries)
	l.entries[idx] = e
	if l.size < len(l.entries) {
		l.size++
		return
	}
	l.head = (l.head + 1) % len(l.entries)
}

// Query returns the retained entries for email, oldest first.
func (l *Ledger) Query(email string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for i := 0; i < l.size; i++ {
		e := l.entries[(l.head+i)%len(l.entries)]
		if e.Email == email {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of retained entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}
