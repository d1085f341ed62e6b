package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xlzd/gotp"
)

func TestTwoFactorEnrollment(t *testing.T) {
	setup()
	defer teardown()

	accountService := AccountService{}
	twoFactorService := TwoFactorService{}

	account, err := accountService.Create(Registration{
		Email:    "alice@example.org",
		Username: "alice",
		Password: "pw",
	})
	assert.NoError(t, err)

	setup2fa, err := twoFactorService.Begin(account)
	assert.NoError(t, err)
	assert.NotEmpty(t, setup2fa.Secret)
	assert.NotEmpty(t, setup2fa.Uri)
	assert.NotEmpty(t, setup2fa.QrCode)

	// Unconfirmed enrollment does not gate login yet
	loaded, err := accountService.Get(account.Id)
	assert.NoError(t, err)
	assert.False(t, loaded.TwoFactorEnabled)

	err = twoFactorService.Confirm(account.Id, "000000")
	assert.Error(t, err)

	err = twoFactorService.Confirm(account.Id, gotp.NewDefaultTOTP(setup2fa.Secret).Now())
	assert.NoError(t, err)

	loaded, err = accountService.Get(account.Id)
	assert.NoError(t, err)
	assert.True(t, loaded.TwoFactorEnabled)

	// Beginning again while enabled is rejected
	_, err = twoFactorService.Begin(loaded)
	assert.Error(t, err)

	err = twoFactorService.Disable(account.Id)
	assert.NoError(t, err)
	loaded, err = accountService.Get(account.Id)
	assert.NoError(t, err)
	assert.False(t, loaded.TwoFactorEnabled)
	assert.Empty(t, loaded.TwoFactorSecret)
}
