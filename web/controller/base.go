// Package controller provides the HTTP handlers of the member API: the
// health endpoints, local registration and login, OAuth sign-in and the
// account settings routes.
package controller

import (
	"net/http"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/web/service"
	"github.com/hivecrest/member-api/web/session"

	"github.com/gin-gonic/gin"
)

const ctxAccount = "LOGIN_ACCOUNT"

// BaseController provides the authentication gate shared by protected
// controllers.
type BaseController struct {
	sessionService service.SessionService
	accountService service.AccountService
}

// checkLogin resolves the requester's session token to an account and
// stores it in the context, or aborts with 401 for absent, unknown and
// expired tokens. Store failures abort with 500, so "not signed in" stays
// distinguishable from "service unavailable".
func (a *BaseController) checkLogin(c *gin.Context) {
	token := session.GetToken(c)
	accountId, ok, err := a.sessionService.Resolve(token)
	if err != nil {
		logger.Warning("resolve session err:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		c.Abort()
		return
	}
	if !ok {
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "auth.loginAgain"))
		c.Abort()
		return
	}

	account, err := a.accountService.Get(accountId)
	if err != nil {
		if database.IsNotFound(err) {
			// Session outlived its account; revoke it.
			if err := a.sessionService.Destroy(token); err != nil {
				logger.Warning("destroy orphaned session err:", err)
			}
			pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "auth.loginAgain"))
		} else {
			logger.Warning("load account err:", err)
			pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		}
		c.Abort()
		return
	}

	c.Set(ctxAccount, account)
	c.Next()
}

// getLoginAccount returns the account placed in the context by checkLogin.
func getLoginAccount(c *gin.Context) *model.Account {
	if obj, ok := c.Get(ctxAccount); ok {
		if account, ok := obj.(*model.Account); ok {
			return account
		}
	}
	return nil
}

// I18nWeb retrieves a localized message for the current request.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	anyfunc, funcExists := c.Get("I18n")
	if !funcExists {
		logger.Warning("I18n function not exists in gin context!")
		return name
	}
	i18nFunc, _ := anyfunc.(func(key string, keyParams ...string) string)
	return i18nFunc(name, params...)
}
