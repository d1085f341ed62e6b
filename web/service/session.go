package service

import (
	"time"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/random"
)

// sessionTokenLength gives just under 286 bits of entropy per token.
const sessionTokenLength = 48

// SessionService issues and resolves session tokens. Tokens are opaque
// random strings persisted server-side, so logout and expiry revoke them
// for real. Only the account id is bound to a token; the full account is
// rehydrated from the store on each request that needs it.
type SessionService struct {
	settingService SettingService
}

// Create issues a new session token bound to accountId.
func (s *SessionService) Create(accountId int) (*model.Session, error) {
	maxAge, err := s.settingService.GetSessionMaxAge()
	if err != nil || maxAge <= 0 {
		logger.Warning("session max age unavailable, using 60 minutes:", err)
		maxAge = 60
	}

	now := time.Now()
	session := &model.Session{
		Token:     random.Seq(sessionTokenLength),
		AccountId: accountId,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(maxAge) * time.Minute),
	}
	if err := database.GetDB().Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// Resolve maps a token back to its account id. ok is false when the token
// is absent, unknown or expired; err reports store failures only. An
// expired row is deleted on the spot rather than waiting for the sweep.
func (s *SessionService) Resolve(token string) (accountId int, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}

	db := database.GetDB()
	session := &model.Session{}
	err = db.Model(model.Session{}).Where("token = ?", token).First(session).Error
	if database.IsNotFound(err) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}

	if session.Expired(time.Now()) {
		if err := s.Destroy(token); err != nil {
			logger.Warning("drop expired session err:", err)
		}
		return 0, false, nil
	}
	return session.AccountId, true, nil
}

// Destroy revokes a token. Idempotent: destroying an absent token is a
// no-op.
func (s *SessionService) Destroy(token string) error {
	if token == "" {
		return nil
	}
	return database.GetDB().
		Where("token = ?", token).
		Delete(model.Session{}).
		Error
}

// DestroyForAccount revokes every session of one account.
func (s *SessionService) DestroyForAccount(accountId int) error {
	return database.GetDB().
		Where("account_id = ?", accountId).
		Delete(model.Session{}).
		Error
}

// PruneExpired deletes all sessions past their expiry and returns how many
// rows went away. Run periodically from the web server's cron.
func (s *SessionService) PruneExpired() (int64, error) {
	result := database.GetDB().
		Where("expires_at < ?", time.Now()).
		Delete(model.Session{})
	return result.RowsAffected, result.Error
}
