package mfa

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"

	"github.com/MrEthical07/authflow/internal/tokens"
)

// BackupCodeCount is the number of backup codes issued per enrollment.
const BackupCodeCount = 10

// ErrNotEnrolled is returned for operations that need an enrollment.
var ErrNotEnrolled = errors.New("mfa not enrolled")

// State is a user's position in the enrollment state machine.
type State int

const (
	Disabled State = iota
	PendingVerification
	Enabled
)

func (s State) String() string {
	switch s {
	case PendingVerification:
		return "pending_verification"
	case Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}

// UserFlagger mirrors the enabled flag onto the user record.
type UserFlagger interface {
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

// Enrollment is returned once from Enroll. BackupCodes are plaintext and are
// not retrievable afterwards.
type Enrollment struct {
	Secret      string   `json:"secret"`
	URI         string   `json:"qrCode"`
	BackupCodes []string `json:"backupCodes"`
}

// Result describes a verification attempt.
type Result struct {
	OK bool
	// BackupCode is set when a backup code matched and was consumed.
	BackupCode bool
	// Activated is set when this attempt moved the user to Enabled.
	Activated bool
	Remaining int
}

type userState struct {
	state  State
	secret string
	backup [][32]byte
}

// Manager holds MFA state for every user behind one mutex.
type Manager struct {
	mu      sync.Mutex
	users   map[string]*userState
	auth    Authenticator
	issuer  *tokens.Issuer
	flagger UserFlagger
}

// NewManager wires a Manager. A nil issuer uses crypto/rand.
func NewManager(auth Authenticator, issuer *tokens.Issuer, flagger UserFlagger) *Manager {
	if issuer == nil {
		issuer = tokens.NewIssuer()
	}
	return &Manager{
		users:   make(map[string]*userState),
		auth:    auth,
		issuer:  issuer,
		flagger: flagger,
	}
}

// Enroll replaces any existing secret and backup codes for userID and moves
// it to PendingVerification.
func (m *Manager) Enroll(_ context.Context, userID, account string) (Enrollment, error) {
	secret, uri, err := m.auth.NewSecret(account)
	if err != nil {
		return Enrollment{}, err
	}
	codes, hashes, err := m.newBackupCodes()
	if err != nil {
		return Enrollment{}, err
	}

	m.mu.Lock()
	m.users[userID] = &userState{state: PendingVerification, secret: secret, backup: hashes}
	m.mu.Unlock()

	return Enrollment{Secret: secret, URI: uri, BackupCodes: codes}, nil
}

// Verify reports whether code is valid for userID.
func (m *Manager) Verify(ctx context.Context, userID, code string) (bool, error) {
	res, err := m.Check(ctx, userID, code)
	return res.OK, err
}

// Check verifies code against the authenticator first and then the backup
// codes, consuming a matched backup code.
func (m *Manager) Check(ctx context.Context, userID, code string) (Result, error) {
	if code == "" {
		return Result{}, nil
	}

	m.mu.Lock()
	st, ok := m.users[userID]
	if !ok || st.state == Disabled {
		m.mu.Unlock()
		return Result{}, nil
	}

	res := Result{}
	if m.auth.Verify(code, st.secret) {
		res.OK = true
	} else if idx := matchBackup(st.backup, code); idx >= 0 {
		st.backup = append(st.backup[:idx], st.backup[idx+1:]...)
		res.OK = true
		res.BackupCode = true
	}
	if !res.OK {
		m.mu.Unlock()
		return res, nil
	}

	res.Remaining = len(st.backup)
	if st.state == PendingVerification {
		st.state = Enabled
		res.Activated = true
	}
	m.mu.Unlock()

	if res.Activated && m.flagger != nil {
		if err := m.flagger.SetMFAEnabled(ctx, userID, true); err != nil {
			m.mu.Lock()
			if cur, ok := m.users[userID]; ok && cur == st {
				st.state = PendingVerification
			}
			m.mu.Unlock()
			return Result{}, err
		}
	}
	return res, nil
}

// matchBackup compares code against every stored digest and returns the
// index of the match, or -1.
func matchBackup(hashes [][32]byte, code string) int {
	h := tokens.Hash(code)
	idx := -1
	for i := range hashes {
		if subtle.ConstantTimeCompare(hashes[i][:], h[:]) == 1 && idx < 0 {
			idx = i
		}
	}
	return idx
}

// Disable clears the secret and backup codes and unsets the user's flag.
func (m *Manager) Disable(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.users, userID)
	m.mu.Unlock()

	if m.flagger != nil {
		return m.flagger.SetMFAEnabled(ctx, userID, false)
	}
	return nil
}

// RegenerateBackupCodes replaces the backup codes of an enrolled user.
func (m *Manager) RegenerateBackupCodes(_ context.Context, userID string) ([]string, error) {
	codes, hashes, err := m.newBackupCodes()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.users[userID]
	if !ok || st.state == Disabled {
		return nil, ErrNotEnrolled
	}
	st.backup = hashes
	return codes, nil
}

// Forget drops all state for userID without touching the user record.
func (m *Manager) Forget(userID string) {
	m.mu.Lock()
	delete(m.users, userID)
	m.mu.Unlock()
}

// State reports the enrollment state of userID.
func (m *Manager) State(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.users[userID]; ok {
		return st.state
	}
	return Disabled
}

// RemainingBackupCodes reports how many unused backup codes userID holds.
func (m *Manager) RemainingBackupCodes(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.users[userID]; ok {
		return len(st.backup)
	}
	return 0
}

func (m *Manager) newBackupCodes() ([]string, [][32]byte, error) {
	codes, err := m.issuer.GenerateN(BackupCodeCount, tokens.BackupCodeLength)
	if err != nil {
		return nil, nil, err
	}
	hashes := make([][32]byte, len(codes))
	for i, c := range codes {
		hashes[i] = tokens.Hash(c)
	}
	return codes, hashes, nil
}
