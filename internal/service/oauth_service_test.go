package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/arturoeanton/agency-backoffice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOAuth(t *testing.T, p *testutil.Provider) (*OAuthService, *testutil.Users, *testutil.Notifier) {
	t.Helper()
	users := testutil.NewUsers()
	notifier := testutil.NewNotifier(8)
	reg := port.AuthProviderRegistry{p.Name: p}
	return NewOAuthService(reg, users, testHasher, notifier), users, notifier
}

func googleProfile(email string) *testutil.Provider {
	return &testutil.Provider{
		Name:    "google",
		Profile: &domain.OAuthProfile{Provider: "google", ProviderID: "g-1", Email: email, Name: "New User", AvatarURL: "https://img/a.png"},
	}
}

func TestHandleCallback_CreatesUserAndSendsWelcome(t *testing.T) {
	svc, users, notifier := newOAuth(t, googleProfile("new@x.com"))
	notifier.Err = errors.New("smtp down")

	user, err := svc.HandleCallback(context.Background(), "google", "code")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", user.Email)
	assert.True(t, user.IsActive)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "New User", user.Name)
	assert.Equal(t, "https://img/a.png", user.AvatarURL)
	assert.Regexp(t, `^new-[0-9a-f]{6}$`, user.Username)
	assert.NotEmpty(t, users.Snapshot(user.ID).PasswordHash)

	ev, ok := notifier.Wait(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, "welcome:new@x.com", ev)
	assert.Equal(t, 1, users.Count())
}

func TestHandleCallback_ExistingUser(t *testing.T) {
	svc, users, notifier := newOAuth(t, googleProfile("old@x.com"))
	existing := users.Add(domain.User{Username: "old", Email: "old@x.com", PasswordHash: "h", IsActive: true})

	user, err := svc.HandleCallback(context.Background(), "google", "code")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, 1, users.Count())

	_, sent := notifier.Wait(50 * time.Millisecond)
	assert.False(t, sent)
}

func TestHandleCallback_ActivatesInactiveUser(t *testing.T) {
	svc, users, _ := newOAuth(t, googleProfile("idle@x.com"))
	existing := users.Add(domain.User{Username: "idle", Email: "idle@x.com", PasswordHash: "h"})

	user, err := svc.HandleCallback(context.Background(), "google", "code")
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.True(t, users.Snapshot(existing.ID).IsActive)
}

func TestHandleCallback_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		svc, _, _ := newOAuth(t, googleProfile("a@x.com"))
		_, err := svc.HandleCallback(ctx, "myspace", "code")
		assert.ErrorIs(t, err, port.ErrUnknownProvider)
	})

	t.Run("missing code", func(t *testing.T) {
		svc, _, _ := newOAuth(t, googleProfile("a@x.com"))
		_, err := svc.HandleCallback(ctx, "google", "")
		assert.ErrorIs(t, err, port.ErrProviderExchange)
	})

	t.Run("exchange error", func(t *testing.T) {
		p := googleProfile("a@x.com")
		p.ExchangeErr = errors.New("invalid_grant")
		svc, _, _ := newOAuth(t, p)
		_, err := svc.HandleCallback(ctx, "google", "code")
		assert.ErrorIs(t, err, port.ErrProviderExchange)
	})

	t.Run("profile without email", func(t *testing.T) {
		svc, users, _ := newOAuth(t, googleProfile(""))
		_, err := svc.HandleCallback(ctx, "google", "code")
		assert.ErrorIs(t, err, port.ErrMissingEmailClaim)
		assert.Zero(t, users.Count())
	})

	t.Run("storage down", func(t *testing.T) {
		svc, users, _ := newOAuth(t, googleProfile("a@x.com"))
		users.Fail = errors.New("connection refused")
		_, err := svc.HandleCallback(ctx, "google", "code")
		assert.ErrorIs(t, err, port.ErrStorageUnavailable)
	})
}

func TestGetAuthURL(t *testing.T) {
	svc, _, _ := newOAuth(t, googleProfile("a@x.com"))

	u, err := svc.GetAuthURL("google", "google:abc")
	require.NoError(t, err)
	assert.Contains(t, u, "state=google:abc")

	_, err = svc.GetAuthURL("github", "x")
	assert.ErrorIs(t, err, port.ErrUnknownProvider)
	assert.Equal(t, []string{"google"}, svc.Providers())
}

// racingUsers hides an existing row from the first lookup, as if another
// request created it between the lookup and the insert.
type racingUsers struct {
	*testutil.Users
	missed atomic.Bool
}

func (r *racingUsers) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if r.missed.CompareAndSwap(false, true) {
		return nil, port.ErrUserNotFound
	}
	return r.Users.GetUserByEmail(ctx, email)
}

func TestHandleCallback_LostCreateRaceSendsNoWelcome(t *testing.T) {
	users := &racingUsers{Users: testutil.NewUsers()}
	winner := users.Add(domain.User{Username: "new", Email: "new@x.com", PasswordHash: "h", IsActive: true})
	notifier := testutil.NewNotifier(8)
	p := googleProfile("new@x.com")
	svc := NewOAuthService(port.AuthProviderRegistry{p.Name: p}, users, testHasher, notifier)

	user, err := svc.HandleCallback(context.Background(), "google", "code")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, user.ID)
	assert.Equal(t, 1, users.Count())

	_, sent := notifier.Wait(100 * time.Millisecond)
	assert.False(t, sent)
}
