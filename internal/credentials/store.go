// Package credentials owns user records and their password hashes.
//
// Read operations return copies of [User], which has no hash field; the hash is
// reachable only through [Store.PasswordHash] for credential verification.
package credentials

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authflow/internal/clock"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateEmail is returned by Create when the normalized email exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned for unknown user ids.
	ErrNotFound = errors.New("user not found")
)

// DefaultRole is assigned when NewUser.Role is empty.
const DefaultRole = "user"

// Preferences are per-user UI and notification settings.
type Preferences struct {
	Theme              string `json:"theme"`
	EmailNotifications bool   `json:"emailNotifications"`
	MarketingEmails    bool   `json:"marketingEmails"`
	TwoFactorAuth      bool   `json:"twoFactorAuth"`
	APIAccess          bool   `json:"apiAccess"`
}

// Profile holds the optional descriptive fields of a user.
type Profile struct {
	Bio              string      `json:"bio,omitempty"`
	Company          string      `json:"company,omitempty"`
	Location         string      `json:"location,omitempty"`
	Website          string      `json:"website,omitempty"`
	MarketingConsent bool        `json:"marketingConsent"`
	Preferences      Preferences `json:"preferences"`
}

// User is the caller-facing view of an account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar,omitempty"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	MFAEnabled    bool      `json:"mfaEnabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Profile       Profile   `json:"profile"`
}

// NewUser carries the fields accepted at creation time.
type NewUser struct {
	Name          string
	AvatarURL     string
	Role          string
	EmailVerified bool
	Profile       Profile
}

// PreferencesPatch updates individual preference fields.
type PreferencesPatch struct {
	Theme              *string
	EmailNotifications *bool
	MarketingEmails    *bool
	TwoFactorAuth      *bool
	APIAccess          *bool
}

// Patch lists the fields to change on Update. Nil fields are left untouched.
type Patch struct {
	Name          *string
	AvatarURL     *string
	EmailVerified *bool
	MFAEnabled    *bool
	Bio           *string
	Company       *string
	Location      *string
	Website       *string
	Preferences   *PreferencesPatch
}

type record struct {
	user         User
	passwordHash string
}

// Store is an in-memory credential store guarded by a single mutex.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*record
	byEmail map[string]string
	clock   clock.Clock
	newID   func() string
}

// NewStore returns an empty Store stamped by clk (nil uses the system clock).
func NewStore(clk clock.Clock) *Store {
	return &Store{
		byID:    make(map[string]*record),
		byEmail: make(map[string]string),
		clock:   clock.OrReal(clk),
		newID:   func() string { return uuid.NewString() },
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user. The email uniqueness check and the insert happen
// under the same lock.
func (s *Store) Create(_ context.Context, email, passwordHash string, in NewUser) (User, error) {
	email = NormalizeEmail(email)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return User{}, ErrDuplicateEmail
	}

	role := in.Role
	if role == "" {
		role = DefaultRole
	}

	rec := &record{
		user: User{
			ID:            s.newID(),
			Email:         email,
			Name:          in.Name,
			AvatarURL:     in.AvatarURL,
			Role:          role,
			EmailVerified: in.EmailVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
			Profile:       in.Profile,
		},
		passwordHash: passwordHash,
	}
	s.byID[rec.user.ID] = rec
	s.byEmail[email] = rec.user.ID

	return rec.user, nil
}

// FindByEmail looks a user up by normalized email.
func (s *Store) FindByEmail(_ context.Context, email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, false
	}
	return s.byID[id].user, true
}

// FindByID looks a user up by id.
func (s *Store) FindByID(_ context.Context, id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return User{}, false
	}
	return rec.user, true
}

// PasswordHash returns the stored hash for id. OAuth-only users have an empty
// hash.
func (s *Store) PasswordHash(_ context.Context, id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return "", false
	}
	return rec.passwordHash, true
}

// SetPasswordHash replaces the stored hash for id.
func (s *Store) SetPasswordHash(_ context.Context, id, hash string) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.passwordHash = hash
	rec.user.UpdatedAt = now
	return nil
}

// Update applies patch to the user and returns the new view.
func (s *Store) Update(_ context.Context, id string, patch Patch) (User, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}

	u := &rec.user
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	if patch.EmailVerified != nil {
		u.EmailVerified = *patch.EmailVerified
	}
	if patch.MFAEnabled != nil {
		u.MFAEnabled = *patch.MFAEnabled
	}
	if patch.Bio != nil {
		u.Profile.Bio = *patch.Bio
	}
	if patch.Company != nil {
		u.Profile.Company = *patch.Company
	}
	if patch.Location != nil {
		u.Profile.Location = *patch.Location
	}
	if patch.Website != nil {
		u.Profile.Website = *patch.Website
	}
	if p := patch.Preferences; p != nil {
		prefs := &u.Profile.Preferences
		if p.Theme != nil {
			prefs.Theme = *p.Theme
		}
		if p.EmailNotifications != nil {
			prefs.EmailNotifications = *p.EmailNotifications
		}
		if p.MarketingEmails != nil {
			prefs.MarketingEmails = *p.MarketingEmails
		}
		if p.TwoFactorAuth != nil {
			prefs.TwoFactorAuth = *p.TwoFactorAuth
		}
		if p.APIAccess != nil {
			prefs.APIAccess = *p.APIAccess
		}
	}
	u.UpdatedAt = now

	return *u, nil
}

// SetMFAEnabled flips the MFA flag on a user.
func (s *Store) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.Update(ctx, id, Patch{MFAEnabled: &enabled})
	return err
}

// Delete removes the user. Deleting an unknown id is a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byEmail, rec.user.Email)
	delete(s.byID, id)
	return nil
}

// Count returns the number of stored users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Emails returns all stored emails in sorted order.
func (s *Store) Emails() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byEmail))
	for email := range s.byEmail {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}
