// Package model defines the persisted entities of the member API: accounts,
// their external provider linkages, server-side sessions and settings.
package model

import (
	"time"
)

// Role values stored on Account. Roles are recorded and returned in account
// summaries but do not gate any operation yet.
const (
	RoleMember  = "member"
	RoleOfficer = "officer"
)

// Account is one member record. Emails are stored lower-cased; usernames
// are matched case-sensitively. An account always carries at least one
// usable credential: a password hash, one or more provider links, or both.
type Account struct {
	Id          int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	Username    string `json:"username" gorm:"uniqueIndex;not null"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role" gorm:"not null;default:member"`

	PasswordHash string `json:"-" gorm:"column:password_hash"`

	// Optional TOTP second factor for password logins. Not a credential on
	// its own: an account with only a TOTP secret cannot sign in.
	TwoFactorSecret  string `json:"-"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`

	CreatedAt time.Time `json:"createdAt"`

	Providers []ProviderLink `json:"providers,omitempty" gorm:"foreignKey:AccountId;references:Id"`
}

// HasPassword reports whether the account has a local password credential.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// ProviderLink associates an account with an identity issued by an external
// OAuth provider. The (provider, provider_id) pair is globally unique: two
// accounts can never claim the same external identity.
type ProviderLink struct {
	Id         int    `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountId  int    `json:"accountId" gorm:"index;not null"`
	Provider   string `json:"provider" gorm:"uniqueIndex:idx_provider_identity;not null"`
	ProviderId string `json:"providerId" gorm:"uniqueIndex:idx_provider_identity;not null"`
	// Email the provider asserted at link time, kept for diagnostics only.
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is one authenticated browser context, bound to exactly one
// account. The token is the opaque value handed to the client; the row is
// deleted on logout or expiry sweep.
type Session struct {
	Token     string    `json:"-" gorm:"primaryKey;size:64"`
	AccountId int       `json:"accountId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index;not null"`
}

// Expired reports whether the session is past its absolute expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Setting is one key/value pair of the DB-backed configuration.
type Setting struct {
	Id    int    `json:"id" form:"id" gorm:"primaryKey;autoIncrement"`
	Key   string `json:"key" form:"key"`
	Value string `json:"value" form:"value"`
}
