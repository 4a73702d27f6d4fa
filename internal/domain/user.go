package domain

import "time"

// Role values stored in users.role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account of the site, local or created through OAuth.
type User struct {
	ID                int64      `json:"id"         db:"id"`
	Username          string     `json:"username"   db:"username"`
	Email             string     `json:"email"      db:"email"`
	PasswordHash      string     `json:"-"          db:"password"` // never serialized to JSON
	Name              string     `json:"name"       db:"name"`
	AvatarURL         string     `json:"avatarUrl"  db:"avatar_url"`
	Role              string     `json:"role"       db:"role"`
	IsActive          bool       `json:"isActive"   db:"is_active"`
	VerificationToken *string    `json:"-"          db:"verification_token"`
	ResetToken        *string    `json:"-"          db:"reset_token"`
	ResetTokenExpires *time.Time `json:"-"          db:"reset_token_expires"`
	LastLogin         *time.Time `json:"lastLogin"  db:"last_login"`
	CreatedAt         time.Time  `json:"createdAt"  db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt"  db:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserUpdate lists the mutable user fields. Nil fields are left untouched.
type UserUpdate struct {
	Name      *string `json:"name,omitempty"`
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// Empty reports whether the update carries no field.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Username == nil && u.AvatarURL == nil && u.Role == nil && u.IsActive == nil
}

// PasswordChange is an append-only record of a successful password change.
type PasswordChange struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    int64     `json:"userId"    db:"user_id"`
	ChangedAt time.Time `json:"changedAt" db:"changed_at"`
}

// OAuthProfile is the identity returned by an upstream provider after code exchange.
type OAuthProfile struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	AvatarURL  string `json:"avatar_url"`
}

// TokenPair holds the OAuth2 tokens returned after code exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
