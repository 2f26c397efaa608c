package domain

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,}$`)

// Account is a registered blog author. It tracks at most one live access token
// and one live refresh token; issuing new ones overwrites the previous values.
type Account struct {
	ID                    string
	Username              string
	Email                 string
	PasswordHash          string
	AccessToken           *string
	AccessTokenExpiresAt  *time.Time
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AssignAccessToken records the current access token.
func (a *Account) AssignAccessToken(token string, expiresAt time.Time) {
	a.AccessToken = &token
	a.AccessTokenExpiresAt = &expiresAt
}

// AssignRefreshToken records the current refresh token.
func (a *Account) AssignRefreshToken(token string, expiresAt time.Time) {
	a.RefreshToken = &token
	a.RefreshTokenExpiresAt = &expiresAt
}

// ClearTokens drops both tracked tokens and their expiries.
func (a *Account) ClearTokens() {
	a.AccessToken = nil
	a.AccessTokenExpiresAt = nil
	a.RefreshToken = nil
	a.RefreshTokenExpiresAt = nil
}

// HasRefreshToken reports whether a refresh token is tracked.
func (a *Account) HasRefreshToken() bool {
	return a.RefreshToken != nil && *a.RefreshToken != ""
}

// HasAccessToken reports whether an access token is tracked.
func (a *Account) HasAccessToken() bool {
	return a.AccessToken != nil && *a.AccessToken != ""
}

// NormalizeEmail trims and lower-cases the address and checks its shape.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}
