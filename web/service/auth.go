package service

import (
	"errors"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/common"
	"github.com/hivecrest/member-api/util/crypto"

	"github.com/xlzd/gotp"
)

var (
	// ErrInvalidCredentials is the single failure returned for any local
	// login problem: unknown identifier, missing password credential,
	// wrong password or wrong two-factor code. Collapsing them avoids
	// enumerating valid emails and usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountProvisioningFailed is returned when OAuth auto-provisioning
	// loses a race and the retried lookup still cannot resolve an account.
	ErrAccountProvisioningFailed = errors.New("account provisioning failed")
)

// OAuthProfile is the external identity handed over after a completed
// OAuth handshake. The profile is already authenticated by the provider;
// the authenticator only maps it onto an account.
type OAuthProfile struct {
	Provider    string
	Id          string
	Email       string
	DisplayName string
}

// AuthService decides whether a presented credential authenticates an
// account.
type AuthService struct {
	accountService AccountService
}

// VerifyLocal authenticates an identifier/password pair, plus a TOTP code
// when the account has two-factor enabled. All failures collapse to
// ErrInvalidCredentials; a bcrypt comparison is burned against a dummy
// hash when no password credential matches, so response latency does not
// reveal whether the identifier exists. Store I/O errors are returned
// as-is, distinct from authentication failures.
func (s *AuthService) VerifyLocal(identifier, password, twoFactorCode string) (*model.Account, error) {
	account, err := s.accountService.FindByIdentifier(identifier)
	if err != nil {
		if database.IsNotFound(err) {
			crypto.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.HasPassword() {
		crypto.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}

	if !crypto.CheckPasswordHash(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if account.TwoFactorEnabled {
		if gotp.NewDefaultTOTP(account.TwoFactorSecret).Now() != twoFactorCode {
			return nil, ErrInvalidCredentials
		}
	}

	return account, nil
}

// VerifyOrProvisionOAuth maps a verified external profile onto an account:
// an already-linked account wins, then an account matched by the asserted
// email (auto-link), then a freshly provisioned one.
//
// Auto-linking by email is a deliberate trust decision: a provider
// asserting an email is treated as proof of ownership. Only enable
// providers that verify member emails.
func (s *AuthService) VerifyOrProvisionOAuth(profile OAuthProfile) (*model.Account, error) {
	if profile.Provider == "" || profile.Id == "" {
		return nil, common.NewError("malformed provider profile")
	}

	account, err := s.accountService.FindByProviderIdentity(profile.Provider, profile.Id)
	if err == nil {
		return account, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}

	email := NormalizeEmail(profile.Email)
	if email != "" {
		account, err = s.accountService.FindByIdentifier(email)
		if err == nil {
			if linkErr := s.accountService.LinkProvider(account.Id, profile.Provider, profile.Id, email); linkErr != nil {
				return s.retryProvisionLookup(profile, linkErr)
			}
			logger.Infof("linked %s identity to account %d", profile.Provider, account.Id)
			return account, nil
		}
		if !database.IsNotFound(err) {
			return nil, err
		}
	}

	account, err = s.accountService.CreateFromProvider(profile.Provider, profile.Id, email, profile.DisplayName)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) || errors.Is(err, ErrProviderAlreadyLinked) {
			return s.retryProvisionLookup(profile, err)
		}
		return nil, err
	}
	logger.Infof("provisioned account %d from %s identity", account.Id, profile.Provider)
	return account, nil
}

// retryProvisionLookup handles the losing side of a concurrent
// provisioning race: the lookup is retried once, then the failure
// surfaces as ErrAccountProvisioningFailed.
func (s *AuthService) retryProvisionLookup(profile OAuthProfile, cause error) (*model.Account, error) {
	account, err := s.accountService.FindByEmailOrProviderIdentity(
		profile.Provider, profile.Id, NormalizeEmail(profile.Email))
	if err == nil {
		return account, nil
	}
	logger.Warningf("oauth provisioning race not recoverable (%v after %v)", err, cause)
	return nil, ErrAccountProvisioningFailed
}
