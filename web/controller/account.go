package controller

import (
	"net/http"

	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/web/service"

	"github.com/gin-gonic/gin"
)

// AccountController serves the signed-in member's own account routes,
// including TOTP enrollment.
type AccountController struct {
	BaseController

	twoFactorService service.TwoFactorService
}

// NewAccountController creates a new AccountController and initializes its routes.
func NewAccountController(g *gin.RouterGroup) *AccountController {
	a := &AccountController{}
	a.initRouter(g)
	return a
}

func (a *AccountController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/account")
	g.Use(a.checkLogin)

	g.GET("", a.account)
	g.POST("/twofactor", a.beginTwoFactor)
	g.POST("/twofactor/confirm", a.confirmTwoFactor)
	g.POST("/twofactor/disable", a.disableTwoFactor)
}

// account returns the signed-in member's summary.
func (a *AccountController) account(c *gin.Context) {
	jsonObj(c, toSummary(getLoginAccount(c)), nil)
}

// beginTwoFactor starts TOTP enrollment and returns the secret with its
// QR code. The secret stays inactive until confirmed.
func (a *AccountController) beginTwoFactor(c *gin.Context) {
	setup, err := a.twoFactorService.Begin(getLoginAccount(c))
	if err != nil {
		logger.Warning("begin two-factor err:", err)
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "auth.serverError"))
		return
	}
	jsonMsgObj(c, I18nWeb(c, "twofactor.setupReady"), setup, nil)
}

// confirmTwoFactor activates the pending secret once the member submits a
// valid code.
func (a *AccountController) confirmTwoFactor(c *gin.Context) {
	var form struct {
		Code string `json:"code" form:"code"`
	}
	if err := c.ShouldBind(&form); err != nil || form.Code == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "auth.invalidFormData"))
		return
	}

	account := getLoginAccount(c)
	if err := a.twoFactorService.Confirm(account.Id, form.Code); err != nil {
		logger.Warningf("confirm two-factor for account %d failed: %v", account.Id, err)
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "twofactor.wrongCode"))
		return
	}
	jsonMsg(c, I18nWeb(c, "twofactor.enabled"), nil)
}

// disableTwoFactor clears the member's TOTP secret.
func (a *AccountController) disableTwoFactor(c *gin.Context) {
	account := getLoginAccount(c)
	if err := a.twoFactorService.Disable(account.Id); err != nil {
		logger.Warning("disable two-factor err:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}
	jsonMsg(c, I18nWeb(c, "twofactor.disabled"), nil)
}
