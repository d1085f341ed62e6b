package controller

import (
	"errors"
	"net/http"

	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/common"
	"github.com/hivecrest/member-api/web/service"
	"github.com/hivecrest/member-api/web/session"

	"github.com/gin-gonic/gin"
)

// LoginForm represents the login request structure. The "user" field is
// the identifier name used by earlier frontend iterations and is accepted
// as an alias of "identifier".
type LoginForm struct {
	Identifier    string `json:"identifier" form:"identifier"`
	User          string `json:"user" form:"user"`
	Password      string `json:"password" form:"password"`
	TwoFactorCode string `json:"twoFactorCode" form:"twoFactorCode"`
}

// AuthController handles local registration, login, logout and whoAmI.
type AuthController struct {
	BaseController

	settingService service.SettingService
	authService    service.AuthService
}

// NewAuthController creates a new AuthController and initializes its routes.
func NewAuthController(g *gin.RouterGroup) *AuthController {
	a := &AuthController{}
	a.initRouter(g)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup) {
	g.POST("/register", a.register)
	g.POST("/login", a.login)
	g.GET("/logout", a.logout)
	g.POST("/logout", a.logout)
	g.GET("/me", a.me)
}

// register creates a local account with a password credential.
func (a *AuthController) register(c *gin.Context) {
	var form service.Registration

	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.invalidFormData"))
		return
	}

	account, err := a.accountService.Create(form)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateIdentifier) {
			pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.duplicateIdentifier"))
			return
		}
		logger.Warning("register failed:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}

	logger.Infof("account %d registered (%s)", account.Id, common.MaskEmail(account.Email))
	jsonMsgObj(c, I18nWeb(c, "auth.registerSuccess"), gin.H{"accountId": account.Id}, nil)
}

// login authenticates an identifier/password pair and opens a session.
func (a *AuthController) login(c *gin.Context) {
	var form LoginForm

	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.invalidFormData"))
		return
	}

	identifier := form.Identifier
	if identifier == "" {
		identifier = form.User
	}
	if identifier == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.emptyIdentifier"))
		return
	}
	if form.Password == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.emptyPassword"))
		return
	}

	account, err := a.authService.VerifyLocal(identifier, form.Password, form.TwoFactorCode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logger.Warningf("failed login for %q, IP: %q", common.MaskEmail(identifier), getRemoteIp(c))
			pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.wrongCredentials"))
			return
		}
		logger.Warning("login failed:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}

	sess, err := a.sessionService.Create(account.Id)
	if err != nil {
		logger.Warning("create session failed:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}

	maxAge, err := a.settingService.GetSessionMaxAge()
	if err != nil {
		logger.Warning("Unable to get session's max age from DB")
	}
	if maxAge > 0 {
		if err := session.SetMaxAge(c, maxAge*60); err != nil {
			logger.Warning("Unable to set session's max age:", err)
		}
	}
	if err := session.SetToken(c, sess.Token); err != nil {
		logger.Warning("Unable to save session:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}

	logger.Infof("account %d logged in, IP: %s", account.Id, getRemoteIp(c))
	jsonMsgObj(c, I18nWeb(c, "auth.loginSuccess"), toSummary(account), nil)
}

// logout revokes the requester's session. Idempotent: logging out without
// a session still succeeds.
func (a *AuthController) logout(c *gin.Context) {
	token := session.GetToken(c)
	if token != "" {
		if err := a.sessionService.Destroy(token); err != nil {
			logger.Warning("destroy session err:", err)
		}
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("clear session err:", err)
	}

	if isAjax(c) || c.Request.Method == http.MethodPost {
		jsonMsg(c, I18nWeb(c, "auth.logoutSuccess"), nil)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, c.GetString("base_path"))
}

// me reports whether the requester is authenticated, with the account
// summary when so. A missing or expired session is a normal negative
// answer, not an error.
func (a *AuthController) me(c *gin.Context) {
	token := session.GetToken(c)
	accountId, ok, err := a.sessionService.Resolve(token)
	if err != nil {
		logger.Warning("resolve session err:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}
	if !ok {
		jsonObj(c, gin.H{"authenticated": false}, nil)
		return
	}

	account, err := a.accountService.Get(accountId)
	if err != nil {
		logger.Warning("load account err:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}
	jsonObj(c, gin.H{"authenticated": true, "account": toSummary(account)}, nil)
}
