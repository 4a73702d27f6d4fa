// Package testutil holds in-memory fakes of the ports for tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

// Users is an in-memory port.UserStore. Setting Fail makes every call return
// a storage error.
type Users struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*domain.User
	changes []domain.PasswordChange

	Fail           error
	LastLoginCalls int
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{byID: make(map[int64]*domain.User)}
}

// Add inserts u as-is, assigning an id when zero.
func (s *Users) Add(u domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	cp := u
	s.byID[u.ID] = &cp
	out := cp
	return &out
}

// Remove deletes a user row, simulating an account removed out of band.
func (s *Users) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// Snapshot returns a copy of the stored user or nil.
func (s *Users) Snapshot(id int64) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// Count returns the number of stored users.
func (s *Users) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Users) storageErr() error {
	if s.Fail != nil {
		return fmt.Errorf("memory store: %w: %w", port.ErrStorageUnavailable, s.Fail)
	}
	return nil
}

func (s *Users) findEmail(email string) *domain.User {
	for _, u := range s.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

func (s *Users) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *Users) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	u := s.findEmail(email)
	if u == nil {
		return nil, port.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *Users) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	if s.findEmail(u.Email) != nil {
		return nil, port.ErrEmailTaken
	}
	for _, other := range s.byID {
		if other.Username == u.Username {
			return nil, port.ErrUsernameTaken
		}
	}
	s.nextID++
	cp := *u
	cp.ID = s.nextID
	if cp.Role == "" {
		cp.Role = domain.RoleUser
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.byID[cp.ID] = &cp
	return copyUser(&cp), nil
}

func (s *Users) UpdateUser(_ context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	u.UpdatedAt = time.Now()
	return copyUser(u), nil
}

func (s *Users) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Users) VerifyUser(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	for _, u := range s.byID {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.IsActive = true
			u.VerificationToken = nil
			return copyUser(u), nil
		}
	}
	return nil, port.ErrInvalidToken
}

func (s *Users) SetVerificationToken(_ context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return err
	}
	u, ok := s.byID[id]
	if !ok {
		return port.ErrUserNotFound
	}
	u.VerificationToken = &token
	return nil
}

func (s *Users) SetResetToken(_ context.Context, email, token string, expiresAt time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	u := s.findEmail(email)
	if u == nil {
		return nil, port.ErrUserNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpires = &expiresAt
	return copyUser(u), nil
}

func (s *Users) ResetPassword(_ context.Context, token, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return 0, err
	}
	now := time.Now()
	for _, u := range s.byID {
		if u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			u.PasswordHash = passwordHash
			u.ResetToken = nil
			u.ResetTokenExpires = nil
			return u.ID, nil
		}
	}
	return 0, port.ErrInvalidToken
}

func (s *Users) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return err
	}
	u, ok := s.byID[id]
	if !ok {
		return port.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *Users) UpdateLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastLoginCalls++
	if err := s.storageErr(); err != nil {
		return err
	}
	u, ok := s.byID[id]
	if !ok {
		return port.ErrUserNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	return nil
}

func (s *Users) RecordPasswordChange(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return err
	}
	s.changes = append(s.changes, domain.PasswordChange{
		ID:        int64(len(s.changes) + 1),
		UserID:    id,
		ChangedAt: time.Now(),
	})
	return nil
}

func (s *Users) GetLastPasswordChange(_ context.Context, id int64) (*domain.PasswordChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	for i := len(s.changes) - 1; i >= 0; i-- {
		if s.changes[i].UserID == id {
			pc := s.changes[i]
			return &pc, nil
		}
	}
	return nil, port.ErrNotFound
}

// Notifier records sent emails and signals each attempt on Sent.
type Notifier struct {
	mu      sync.Mutex
	Welcome []port.WelcomeEmail
	Resets  map[string]string
	Err     error
	Sent    chan string
}

// NewNotifier returns a Notifier whose Sent channel buffers n attempts.
func NewNotifier(n int) *Notifier {
	return &Notifier{Resets: make(map[string]string), Sent: make(chan string, n)}
}

func (n *Notifier) SendWelcomeEmail(_ context.Context, msg port.WelcomeEmail) error {
	n.mu.Lock()
	n.Welcome = append(n.Welcome, msg)
	n.mu.Unlock()
	n.signal("welcome:" + msg.Email)
	return n.Err
}

func (n *Notifier) SendPasswordResetEmail(_ context.Context, email, token string) error {
	n.mu.Lock()
	n.Resets[email] = token
	n.mu.Unlock()
	n.signal("reset:" + email)
	return n.Err
}

func (n *Notifier) signal(ev string) {
	select {
	case n.Sent <- ev:
	default:
	}
}

// Wait blocks until an attempt is signalled or d elapses.
func (n *Notifier) Wait(d time.Duration) (string, bool) {
	select {
	case ev := <-n.Sent:
		return ev, true
	case <-time.After(d):
		return "", false
	}
}

// ResetToken returns the last reset token mailed to email.
func (n *Notifier) ResetToken(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Resets[email]
}

// WelcomeTo returns the last welcome email sent to email.
func (n *Notifier) WelcomeTo(email string) (port.WelcomeEmail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.Welcome) - 1; i >= 0; i-- {
		if n.Welcome[i].Email == email {
			return n.Welcome[i], true
		}
	}
	return port.WelcomeEmail{}, false
}

// Provider is a scripted port.AuthProvider.
type Provider struct {
	Name        string
	Profile     *domain.OAuthProfile
	ExchangeErr error
	ProfileErr  error
}

func (p *Provider) ProviderName() string { return p.Name }

func (p *Provider) AuthURL(state string) string {
	return "https://idp.example/" + p.Name + "/authorize?state=" + state
}

func (p *Provider) ExchangeCode(_ context.Context, code string) (*domain.TokenPair, error) {
	if p.ExchangeErr != nil {
		return nil, p.ExchangeErr
	}
	return &domain.TokenPair{AccessToken: "at-" + code, TokenType: "Bearer"}, nil
}

func (p *Provider) GetUserProfile(_ context.Context, _ string) (*domain.OAuthProfile, error) {
	if p.ProfileErr != nil {
		return nil, p.ProfileErr
	}
	cp := *p.Profile
	return &cp, nil
}
