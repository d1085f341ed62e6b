package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xlzd/gotp"
)

func TestVerifyLocal(t *testing.T) {
	setup()
	defer teardown()

	accountService := AccountService{}
	authService := AuthService{}

	created, err := accountService.Create(Registration{
		Email:    "alice@example.org",
		Username: "alice",
		Password: "hunter2",
	})
	assert.NoError(t, err)

	// Login by username
	account, err := authService.VerifyLocal("alice", "hunter2", "")
	assert.NoError(t, err)
	assert.Equal(t, created.Id, account.Id)

	// Login by email, any case
	account, err = authService.VerifyLocal("Alice@Example.org", "hunter2", "")
	assert.NoError(t, err)
	assert.Equal(t, created.Id, account.Id)

	// Wrong password and unknown identifier fail identically
	_, err = authService.VerifyLocal("alice", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = authService.VerifyLocal("nobody", "hunter2", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = authService.VerifyLocal("nobody@example.org", "hunter2", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyLocalOAuthOnlyAccount(t *testing.T) {
	setup()
	defer teardown()

	accountService := AccountService{}
	authService := AuthService{}

	account, err := accountService.CreateFromProvider("google", "g-1", "bob@example.org", "Bob")
	assert.NoError(t, err)

	// No password credential means any password fails
	_, err = authService.VerifyLocal("bob@example.org", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = authService.VerifyLocal(account.Username, "anything", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyLocalTwoFactor(t *testing.T) {
	setup()
	defer teardown()

	accountService := AccountService{}
	authService := AuthService{}

	created, err := accountService.Create(Registration{
		Email:    "carol@example.org",
		Username: "carol",
		Password: "pw",
	})
	assert.NoError(t, err)

	secret := gotp.RandomSecret(32)
	err = accountService.UpdateTwoFactor(created.Id, secret, true)
	assert.NoError(t, err)

	_, err = authService.VerifyLocal("carol", "pw", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = authService.VerifyLocal("carol", "pw", "000000")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	account, err := authService.VerifyLocal("carol", "pw", gotp.NewDefaultTOTP(secret).Now())
	assert.NoError(t, err)
	assert.Equal(t, created.Id, account.Id)
}

func TestVerifyOrProvisionOAuth(t *testing.T) {
	setup()
	defer teardown()

	authService := AuthService{}

	profile := OAuthProfile{
		Provider:    "google",
		Id:          "g-100",
		Email:       "Dana@Example.org",
		DisplayName: "Dana",
	}

	// First callback provisions
	account, err := authService.VerifyOrProvisionOAuth(profile)
	assert.NoError(t, err)
	assert.Equal(t, "dana@example.org", account.Email)

	// Second callback resolves the same account
	again, err := authService.VerifyOrProvisionOAuth(profile)
	assert.NoError(t, err)
	assert.Equal(t, account.Id, again.Id)

	_, err = authService.VerifyOrProvisionOAuth(OAuthProfile{Provider: "google"})
	assert.Error(t, err)
}

func TestVerifyOrProvisionOAuthAutoLink(t *testing.T) {
	setup()
	defer teardown()

	accountService := AccountService{}
	authService := AuthService{}

	created, err := accountService.Create(Registration{
		Email:    "erin@example.org",
		Username: "erin",
		Password: "pw",
	})
	assert.NoError(t, err)

	// Provider asserts the email of an existing local account: link, don't
	// create.
	account, err := authService.VerifyOrProvisionOAuth(OAuthProfile{
		Provider: "facebook",
		Id:       "f-7",
		Email:    "ERIN@example.org",
	})
	assert.NoError(t, err)
	assert.Equal(t, created.Id, account.Id)

	loaded, err := accountService.Get(created.Id)
	assert.NoError(t, err)
	assert.Len(t, loaded.Providers, 1)

	// Password login keeps working after the link
	_, err = authService.VerifyLocal("erin", "pw", "")
	assert.NoError(t, err)
}

func TestVerifyOrProvisionOAuthLinkedElsewhere(t *testing.T) {
	setup()
	defer teardown()

	accountService := AccountService{}
	authService := AuthService{}

	owner, err := authService.VerifyOrProvisionOAuth(OAuthProfile{
		Provider: "google",
		Id:       "g-55",
		Email:    "frank@example.org",
	})
	assert.NoError(t, err)

	// A second local account with the same provider identity already taken
	// resolves back to the linked owner instead of failing outright.
	_, err = accountService.Create(Registration{
		Email:    "frank2@example.org",
		Username: "frank2",
		Password: "pw",
	})
	assert.NoError(t, err)

	account, err := authService.VerifyOrProvisionOAuth(OAuthProfile{
		Provider: "google",
		Id:       "g-55",
		Email:    "frank2@example.org",
	})
	assert.NoError(t, err)
	assert.Equal(t, owner.Id, account.Id)
}
