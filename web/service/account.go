// Package service implements the business services of the member API: the
// account store, the authenticator, the session manager and the DB-backed
// settings.
package service

import (
	"errors"
	"strings"
	"time"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/util/common"
	"github.com/hivecrest/member-api/util/crypto"
	"github.com/hivecrest/member-api/util/random"

	"gorm.io/gorm"
)

var (
	// ErrDuplicateIdentifier is returned when a registration reuses an
	// email or username of an existing account.
	ErrDuplicateIdentifier = errors.New("email or username already taken")

	// ErrProviderAlreadyLinked is returned when a (provider, providerId)
	// pair already belongs to a different account.
	ErrProviderAlreadyLinked = errors.New("external identity already linked to another account")
)

// Registration carries the fields of a local account registration.
type Registration struct {
	Email       string `json:"email" form:"email"`
	Username    string `json:"username" form:"username"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"displayName" form:"displayName"`
}

// AccountService is the credential store: it owns all reads and writes of
// accounts and their provider linkages. Uniqueness of email, username and
// provider identities is enforced by the database's unique indexes, never
// by check-then-insert, so concurrent registrations of the same identifier
// yield exactly one success.
type AccountService struct{}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
// Email comparison is case-insensitive; username comparison is not.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByIdentifier looks up an account by email or username. Identifiers
// containing '@' are treated as emails.
func (s *AccountService) FindByIdentifier(identifier string) (*model.Account, error) {
	db := database.GetDB()
	account := &model.Account{}

	var err error
	if strings.Contains(identifier, "@") {
		err = db.Model(model.Account{}).
			Where("email = ?", NormalizeEmail(identifier)).
			First(account).
			Error
	} else {
		err = db.Model(model.Account{}).
			Where("username = ?", identifier).
			First(account).
			Error
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindByProviderIdentity resolves the account linked to an external
// provider identity.
func (s *AccountService) FindByProviderIdentity(provider, providerId string) (*model.Account, error) {
	db := database.GetDB()

	link := &model.ProviderLink{}
	err := db.Model(model.ProviderLink{}).
		Where("provider = ? AND provider_id = ?", provider, providerId).
		First(link).
		Error
	if err != nil {
		return nil, err
	}
	return s.Get(link.AccountId)
}

// FindByEmailOrProviderIdentity resolves an account by provider identity
// first and by email second. Used at OAuth callback time to decide between
// linking and creating.
func (s *AccountService) FindByEmailOrProviderIdentity(provider, providerId, email string) (*model.Account, error) {
	account, err := s.FindByProviderIdentity(provider, providerId)
	if err == nil {
		return account, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}
	if email == "" {
		return nil, err
	}
	return s.FindByIdentifier(email)
}

// Get loads an account by id, including its provider linkages.
func (s *AccountService) Get(accountId int) (*model.Account, error) {
	db := database.GetDB()

	account := &model.Account{}
	err := db.Model(model.Account{}).
		Preload("Providers").
		Where("id = ?", accountId).
		First(account).
		Error
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Create registers a local account with a password credential. Fails with
// ErrDuplicateIdentifier when the email or username is already present.
// Either the full account row is written or nothing is.
func (s *AccountService) Create(reg Registration) (*model.Account, error) {
	if reg.Email == "" || !strings.Contains(reg.Email, "@") {
		return nil, common.NewError("registration requires a valid email")
	}
	if reg.Username == "" || strings.Contains(reg.Username, "@") {
		return nil, common.NewError("registration requires a username without '@'")
	}
	if reg.Password == "" {
		return nil, common.NewError("registration requires a password")
	}

	hash, err := crypto.HashPasswordAsBcrypt(reg.Password)
	if err != nil {
		return nil, err
	}

	displayName := reg.DisplayName
	if displayName == "" {
		displayName = reg.Username
	}

	account := &model.Account{
		Email:        NormalizeEmail(reg.Email),
		Username:     reg.Username,
		DisplayName:  displayName,
		Role:         model.RoleMember,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := database.GetDB().Create(account).Error; err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, err
	}
	return account, nil
}

// CreateFromProvider provisions an account from an external profile: the
// account row and its provider link are written in one transaction, so a
// provisioned account never exists without its credential.
func (s *AccountService) CreateFromProvider(provider, providerId, email, displayName string) (*model.Account, error) {
	email = NormalizeEmail(email)
	username := generateUsername(email, displayName)
	if displayName == "" {
		displayName = username
	}

	account := &model.Account{
		Email:       email,
		Username:    username,
		DisplayName: displayName,
		Role:        model.RoleMember,
		CreatedAt:   time.Now(),
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		link := &model.ProviderLink{
			AccountId:  account.Id,
			Provider:   provider,
			ProviderId: providerId,
			Email:      email,
			CreatedAt:  time.Now(),
		}
		return tx.Create(link).Error
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, err
	}
	return account, nil
}

// LinkProvider attaches an external identity to an existing account. A
// link already held by the same account is a no-op; one held by a
// different account fails with ErrProviderAlreadyLinked.
func (s *AccountService) LinkProvider(accountId int, provider, providerId, email string) error {
	db := database.GetDB()

	link := &model.ProviderLink{
		AccountId:  accountId,
		Provider:   provider,
		ProviderId: providerId,
		Email:      NormalizeEmail(email),
		CreatedAt:  time.Now(),
	}
	err := db.Create(link).Error
	if err == nil {
		return nil
	}
	if !database.IsDuplicate(err) {
		return err
	}

	existing := &model.ProviderLink{}
	lookupErr := db.Model(model.ProviderLink{}).
		Where("provider = ? AND provider_id = ?", provider, providerId).
		First(existing).
		Error
	if lookupErr == nil && existing.AccountId == accountId {
		return nil
	}
	return ErrProviderAlreadyLinked
}

// UpdateTwoFactor stores (or clears) the TOTP secret and enabled flag.
func (s *AccountService) UpdateTwoFactor(accountId int, secret string, enabled bool) error {
	return database.GetDB().Model(model.Account{}).
		Where("id = ?", accountId).
		Updates(map[string]any{"two_factor_secret": secret, "two_factor_enabled": enabled}).
		Error
}

// generateUsername derives a unique-ish username for auto-provisioned
// accounts from the profile email or display name, with a random suffix to
// keep the unique index satisfied.
func generateUsername(email, displayName string) string {
	base := displayName
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if slug == "" {
		slug = "member"
	}
	if len(slug) > 24 {
		slug = slug[:24]
	}
	return slug + "-" + strings.ToLower(random.Seq(6))
}
