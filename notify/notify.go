// Package notify delivers verification and password-reset tokens to users.
//
// The engine hands every token it creates to a Notifier. Delivery is
// best-effort: a failed send is logged by the caller and never rolls back
// the token.
package notify

import (
	"context"
	"sync"
)

// Kind distinguishes the message types a Notifier sends.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Notifier sends tokens out of band.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) SendVerification(context.Context, string, string) error  { return nil }
func (Nop) SendPasswordReset(context.Context, string, string) error { return nil }

// Message is one delivery captured by Recorder.
type Message struct {
	Kind  Kind
	Email string
	Token string
}

// Recorder keeps every message in memory. Tests and local tooling use it to
// read back tokens that would otherwise leave the process.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SendVerification(_ context.Context, email, token string) error {
	r.add(Message{Kind: KindVerification, Email: email, Token: token})
	return nil
}

func (r *Recorder) SendPasswordReset(_ context.Context, email, token string) error {
	r.add(Message{Kind: KindPasswordReset, Email: email, Token: token})
	return nil
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
}

// Sent returns a copy of all recorded messages, oldest first.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent token of kind sent to email.
func (r *Recorder) Last(kind Kind, email string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if m := r.sent[i]; m.Kind == kind && m.Email == email {
			return m.Token, true
		}
	}
	return "", false
}

// LastVerification is Last(KindVerification, email).
func (r *Recorder) LastVerification(email string) (string, bool) {
	return r.Last(KindVerification, email)
}

// LastReset is Last(KindPasswordReset, email).
func (r *Recorder) LastReset(email string) (string, bool) {
	return r.Last(KindPasswordReset, email)
}

// Count reports the number of recorded messages.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
