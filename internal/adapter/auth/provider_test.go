package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoogleServer(t *testing.T, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "g-1", "email": "new@x.com", "verified_email": verified,
			"name": "New User", "picture": "https://img/avatar.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testGoogle(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider("cid", "secret", "http://localhost/cb").WithEndpoints(Endpoints{
		AuthURL:    srv.URL + "/auth",
		TokenURL:   srv.URL + "/token",
		ProfileURL: srv.URL + "/userinfo",
	})
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	g := NewGoogleProvider("cid", "secret", "http://localhost/cb")

	u, err := url.Parse(g.AuthURL("google:abc"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "google:abc", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestGoogleProvider_ExchangeAndProfile(t *testing.T) {
	g := testGoogle(newGoogleServer(t, true))
	ctx := context.Background()

	tokens, err := g.ExchangeCode(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)

	profile, err := g.GetUserProfile(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", profile.Email)
	assert.Equal(t, "New User", profile.Name)
	assert.Equal(t, "https://img/avatar.png", profile.AvatarURL)
	assert.Equal(t, "google", profile.Provider)
}

func TestGoogleProvider_UnverifiedEmailDropped(t *testing.T) {
	g := testGoogle(newGoogleServer(t, false))

	profile, err := g.GetUserProfile(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
}

func TestGoogleProvider_ExchangeFailure(t *testing.T) {
	g := testGoogle(newGoogleServer(t, true))

	_, err := g.ExchangeCode(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange failed (400)")
}

func TestGoogleProvider_ProfileUnauthorized(t *testing.T) {
	g := testGoogle(newGoogleServer(t, true))

	_, err := g.GetUserProfile(context.Background(), "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile fetch failed (401)")
}

func newGitHubServer(t *testing.T, emails []map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			json.NewEncoder(w).Encode(map[string]any{"error": "bad_verification_code", "error_description": "expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "gh-at", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 99, "login": "octo", "name": "", "email": "public@x.com", "avatar_url": "https://gh/avatar"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testGitHub(srv *httptest.Server) *GitHubProvider {
	return NewGitHubProvider("cid", "secret", "http://localhost/cb").WithEndpoints(Endpoints{
		AuthURL:    srv.URL + "/authorize",
		TokenURL:   srv.URL + "/token",
		ProfileURL: srv.URL + "/user",
		EmailsURL:  srv.URL + "/user/emails",
	})
}

func TestGitHubProvider_PrimaryVerifiedEmail(t *testing.T) {
	srv := newGitHubServer(t, []map[string]any{
		{"email": "other@x.com", "primary": false, "verified": true},
		{"email": "primary@x.com", "primary": true, "verified": true},
	})
	g := testGitHub(srv)
	ctx := context.Background()

	tokens, err := g.ExchangeCode(ctx, "good-code")
	require.NoError(t, err)

	profile, err := g.GetUserProfile(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "primary@x.com", profile.Email)
	assert.Equal(t, "octo", profile.Name)
	assert.Equal(t, "99", profile.ProviderID)
}

func TestGitHubProvider_NoVerifiedEmail(t *testing.T) {
	srv := newGitHubServer(t, []map[string]any{
		{"email": "unverified@x.com", "primary": true, "verified": false},
	})

	profile, err := testGitHub(srv).GetUserProfile(context.Background(), "gh-at")
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
}

func TestGitHubProvider_ExchangeError(t *testing.T) {
	srv := newGitHubServer(t, nil)

	_, err := testGitHub(srv).ExchangeCode(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_verification_code")
}
