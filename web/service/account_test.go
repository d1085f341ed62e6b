package service

import (
	"os"
	"sync"
	"testing"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/logger"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
)

func setup() {
	logger.InitLogger(logging.DEBUG)
	dbPath := "test.db"
	os.Remove(dbPath)
	database.InitDB(dbPath)
}

func teardown() {
	db, _ := database.GetDB().DB()
	db.Close()
	os.Remove("test.db")
}

func TestAccountCreate(t *testing.T) {
	setup()
	defer teardown()

	service := AccountService{}

	account, err := service.Create(Registration{
		Email:    "Alice@Example.org",
		Username: "alice",
		Password: "hunter2",
	})
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.org", account.Email)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "alice", account.DisplayName)
	assert.True(t, account.HasPassword())
	assert.NotEqual(t, "hunter2", account.PasswordHash)

	// Same email, different username
	_, err = service.Create(Registration{
		Email:    "alice@example.org",
		Username: "alice2",
		Password: "hunter2",
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	// Same username, different email
	_, err = service.Create(Registration{
		Email:    "other@example.org",
		Username: "alice",
		Password: "hunter2",
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	// Email uniqueness ignores case
	_, err = service.Create(Registration{
		Email:    "ALICE@example.org",
		Username: "alice3",
		Password: "hunter2",
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
}

func TestAccountCreateConcurrent(t *testing.T) {
	setup()
	defer teardown()

	service := AccountService{}
	reg := Registration{
		Email:    "race@example.org",
		Username: "race",
		Password: "pw",
	}

	// Identical registrations racing through the unique indexes: exactly
	// one insert wins.
	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Create(reg)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)

	_, err := service.Create(reg)
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
}

func TestAccountCreateValidation(t *testing.T) {
	setup()
	defer teardown()

	service := AccountService{}

	_, err := service.Create(Registration{Username: "bob", Password: "pw"})
	assert.Error(t, err)

	_, err = service.Create(Registration{Email: "bob@example.org", Password: "pw"})
	assert.Error(t, err)

	_, err = service.Create(Registration{Email: "bob@example.org", Username: "bob"})
	assert.Error(t, err)

	// Usernames may not look like emails
	_, err = service.Create(Registration{Email: "bob@example.org", Username: "bob@home", Password: "pw"})
	assert.Error(t, err)
}

func TestFindByIdentifier(t *testing.T) {
	setup()
	defer teardown()

	service := AccountService{}

	created, err := service.Create(Registration{
		Email:    "carol@example.org",
		Username: "carol",
		Password: "pw",
	})
	assert.NoError(t, err)

	byUsername, err := service.FindByIdentifier("carol")
	assert.NoError(t, err)
	assert.Equal(t, created.Id, byUsername.Id)

	byEmail, err := service.FindByIdentifier("Carol@Example.org")
	assert.NoError(t, err)
	assert.Equal(t, created.Id, byEmail.Id)

	// Username lookup is case-sensitive
	_, err = service.FindByIdentifier("Carol")
	assert.True(t, database.IsNotFound(err))
}

func TestCreateFromProvider(t *testing.T) {
	setup()
	defer teardown()

	service := AccountService{}

	account, err := service.CreateFromProvider("google", "g-123", "Dana@Example.org", "Dana D")
	assert.NoError(t, err)
	assert.Equal(t, "dana@example.org", account.Email)
	assert.NotEmpty(t, account.Username)
	assert.False(t, account.HasPassword())

	loaded, err := service.Get(account.Id)
	assert.NoError(t, err)
	assert.Len(t, loaded.Providers, 1)
	assert.Equal(t, "google", loaded.Providers[0].Provider)
	assert.Equal(t, "g-123", loaded.Providers[0].ProviderId)

	byIdentity, err := service.FindByProviderIdentity("google", "g-123")
	assert.NoError(t, err)
	assert.Equal(t, account.Id, byIdentity.Id)

	// Duplicate email provisioning hits the unique index
	_, err = service.CreateFromProvider("facebook", "f-999", "dana@example.org", "Dana")
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
}

func TestLinkProvider(t *testing.T) {
	setup()
	defer teardown()

	service := AccountService{}

	first, err := service.Create(Registration{
		Email:    "erin@example.org",
		Username: "erin",
		Password: "pw",
	})
	assert.NoError(t, err)

	second, err := service.Create(Registration{
		Email:    "frank@example.org",
		Username: "frank",
		Password: "pw",
	})
	assert.NoError(t, err)

	err = service.LinkProvider(first.Id, "google", "g-erin", "erin@example.org")
	assert.NoError(t, err)

	// Linking the same identity to the same account again is a no-op
	err = service.LinkProvider(first.Id, "google", "g-erin", "erin@example.org")
	assert.NoError(t, err)

	// A different account may not claim it
	err = service.LinkProvider(second.Id, "google", "g-erin", "frank@example.org")
	assert.ErrorIs(t, err, ErrProviderAlreadyLinked)

	// The same external user on another provider is a distinct identity
	err = service.LinkProvider(second.Id, "facebook", "g-erin", "frank@example.org")
	assert.NoError(t, err)
}
