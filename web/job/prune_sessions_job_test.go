package job

import (
	"os"
	"testing"
	"time"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/web/service"

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

func TestPruneSessionsJob(t *testing.T) {
	setup()
	defer teardown()

	accountService := service.AccountService{}
	sessionService := service.SessionService{}

	account, err := accountService.Create(service.Registration{
		Email:    "alice@example.org",
		Username: "alice",
		Password: "pw",
	})
	assert.NoError(t, err)

	live, err := sessionService.Create(account.Id)
	assert.NoError(t, err)
	stale, err := sessionService.Create(account.Id)
	assert.NoError(t, err)

	err = database.GetDB().Model(model.Session{}).
		Where("token = ?", stale.Token).
		Update("expires_at", time.Now().Add(-time.Hour)).
		Error
	assert.NoError(t, err)

	job := NewPruneSessionsJob()
	job.Run()

	_, ok, err := sessionService.Resolve(stale.Token)
	assert.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = sessionService.Resolve(live.Token)
	assert.NoError(t, err)
	assert.True(t, ok)

	// A second sweep with nothing to prune is a no-op
	job.Run()
	_, ok, err = sessionService.Resolve(live.Token)
	assert.NoError(t, err)
	assert.True(t, ok)
}
