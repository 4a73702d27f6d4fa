// Package auth implements OAuth2 identity providers.
package auth

import "time"

const defaultHTTPTimeout = 15 * time.Second

// Endpoints are the provider URLs used during the authorization code flow.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	ProfileURL string
	EmailsURL  string // GitHub only
}
