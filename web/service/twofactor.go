package service

import (
	"encoding/base64"

	"github.com/hivecrest/member-api/config"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/util/common"

	"github.com/skip2/go-qrcode"
	"github.com/xlzd/gotp"
)

// TwoFactorSetup is returned when enrollment begins: the member scans the
// QR (or enters the secret manually) and confirms with one valid code.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	Uri    string `json:"uri"`
	QrCode string `json:"qrCode"` // PNG, base64-encoded
}

// TwoFactorService manages optional TOTP enrollment for password logins.
type TwoFactorService struct {
	accountService AccountService
}

// Begin generates a fresh TOTP secret for the account and stores it
// disabled. Beginning again replaces an unconfirmed secret.
func (s *TwoFactorService) Begin(account *model.Account) (*TwoFactorSetup, error) {
	if account.TwoFactorEnabled {
		return nil, common.NewError("two-factor already enabled")
	}

	secret := gotp.RandomSecret(32)
	uri := gotp.NewDefaultTOTP(secret).ProvisioningUri(account.Email, config.GetName())

	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	if err := s.accountService.UpdateTwoFactor(account.Id, secret, false); err != nil {
		return nil, err
	}

	return &TwoFactorSetup{
		Secret: secret,
		Uri:    uri,
		QrCode: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Confirm activates two-factor once the member proves possession of the
// secret with a current code.
func (s *TwoFactorService) Confirm(accountId int, code string) error {
	account, err := s.accountService.Get(accountId)
	if err != nil {
		return err
	}
	if account.TwoFactorSecret == "" {
		return common.NewError("two-factor enrollment not started")
	}
	if gotp.NewDefaultTOTP(account.TwoFactorSecret).Now() != code {
		return common.NewError("wrong two-factor code")
	}
	return s.accountService.UpdateTwoFactor(accountId, account.TwoFactorSecret, true)
}

// Disable clears the TOTP secret. Password logins stop requiring a code.
func (s *TwoFactorService) Disable(accountId int) error {
	return s.accountService.UpdateTwoFactor(accountId, "", false)
}
