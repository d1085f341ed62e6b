package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/common"
	"github.com/hivecrest/member-api/web/service"
	"github.com/hivecrest/member-api/web/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/v12.0/me?fields=id,name,email"
)

// OAuthController runs the provider handshake and hands the verified
// profile to the authenticator for account resolution or provisioning.
type OAuthController struct {
	BaseController

	settingService service.SettingService
	authService    service.AuthService
}

// NewOAuthController creates a new OAuthController and initializes its routes.
func NewOAuthController(g *gin.RouterGroup) *OAuthController {
	a := &OAuthController{}
	a.initRouter(g)
	return a
}

func (a *OAuthController) initRouter(g *gin.RouterGroup) {
	g.GET("/auth/:provider/login", a.login)
	g.GET("/auth/:provider/callback", a.callback)
}

func knownProvider(provider string) bool {
	return provider == "google" || provider == "facebook"
}

// oauthConfig builds the oauth2 configuration for a provider from the
// stored settings. A provider with no client id is disabled.
func (a *OAuthController) oauthConfig(c *gin.Context, provider string) (*oauth2.Config, error) {
	var (
		clientId, clientSecret string
		endpoint               oauth2.Endpoint
		scopes                 []string
		err                    error
	)

	switch provider {
	case "google":
		endpoint = google.Endpoint
		scopes = []string{"openid", "email", "profile"}
		if clientId, err = a.settingService.GetGoogleClientId(); err != nil {
			return nil, err
		}
		if clientSecret, err = a.settingService.GetGoogleClientSecret(); err != nil {
			return nil, err
		}
	case "facebook":
		endpoint = facebook.Endpoint
		scopes = []string{"public_profile", "email"}
		if clientId, err = a.settingService.GetFacebookClientId(); err != nil {
			return nil, err
		}
		if clientSecret, err = a.settingService.GetFacebookClientSecret(); err != nil {
			return nil, err
		}
	default:
		return nil, common.NewErrorf("unknown oauth provider: %s", provider)
	}

	if clientId == "" || clientSecret == "" {
		return nil, common.NewErrorf("oauth provider %s is not configured", provider)
	}

	redirectBase, err := a.settingService.GetOAuthRedirectBase()
	if err != nil {
		return nil, err
	}
	if redirectBase == "" {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		redirectBase = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	basePath, err := a.settingService.GetBasePath()
	if err != nil {
		return nil, err
	}

	return &oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
		RedirectURL:  fmt.Sprintf("%s%sauth/%s/callback", redirectBase, basePath, provider),
	}, nil
}

// login starts the provider handshake: a one-shot state nonce is bound to
// the requester's cookie session and the browser is sent to the provider.
func (a *OAuthController) login(c *gin.Context) {
	provider := c.Param("provider")
	if !knownProvider(provider) {
		pureJsonMsg(c, http.StatusNotFound, false, I18nWeb(c, "oauth.unknownProvider"))
		return
	}
	cfg, err := a.oauthConfig(c, provider)
	if err != nil {
		logger.Warning("oauth login:", err)
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "oauth.providerDisabled"))
		return
	}

	state := uuid.NewString()
	if err := session.SetOAuthState(c, state); err != nil {
		logger.Warning("save oauth state err:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, cfg.AuthCodeURL(state))
}

// callback finishes the handshake: state is verified and consumed, the
// code is exchanged, the profile fetched and mapped onto an account, and
// a session is opened for it.
func (a *OAuthController) callback(c *gin.Context) {
	provider := c.Param("provider")
	if !knownProvider(provider) {
		pureJsonMsg(c, http.StatusNotFound, false, I18nWeb(c, "oauth.unknownProvider"))
		return
	}
	cfg, err := a.oauthConfig(c, provider)
	if err != nil {
		logger.Warning("oauth callback:", err)
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "oauth.providerDisabled"))
		return
	}

	state := c.Query("state")
	if state == "" || state != session.TakeOAuthState(c) {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "oauth.stateMismatch"))
		return
	}

	ctx := c.Request.Context()
	token, err := cfg.Exchange(ctx, c.Query("code"))
	if err != nil {
		logger.Warningf("oauth code exchange with %s failed: %v", provider, err)
		pureJsonMsg(c, http.StatusBadGateway, false, I18nWeb(c, "oauth.exchangeFailed"))
		return
	}

	profile, err := fetchProfile(cfg.Client(ctx, token), provider)
	if err != nil {
		logger.Warningf("fetch %s profile failed: %v", provider, err)
		pureJsonMsg(c, http.StatusBadGateway, false, I18nWeb(c, "oauth.exchangeFailed"))
		return
	}

	account, err := a.authService.VerifyOrProvisionOAuth(*profile)
	if err != nil {
		logger.Warning("oauth provisioning failed:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "oauth.provisioningFailed"))
		return
	}

	sess, err := a.sessionService.Create(account.Id)
	if err != nil {
		logger.Warning("create session failed:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}
	if err := session.SetToken(c, sess.Token); err != nil {
		logger.Warning("Unable to save session:", err)
		pureJsonMsg(c, http.StatusInternalServerError, false, I18nWeb(c, "auth.serverError"))
		return
	}

	logger.Infof("account %d signed in via %s, IP: %s", account.Id, provider, getRemoteIp(c))
	jsonMsgObj(c, I18nWeb(c, "auth.loginSuccess"), toSummary(account), nil)
}

// fetchProfile retrieves the provider's view of the signed-in user with
// the freshly exchanged token.
func fetchProfile(client *http.Client, provider string) (*service.OAuthProfile, error) {
	var url string
	switch provider {
	case "google":
		url = googleUserInfoURL
	case "facebook":
		url = facebookUserInfoURL
	default:
		return nil, common.NewErrorf("unknown oauth provider: %s", provider)
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, common.NewErrorf("userinfo endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch provider {
	case "google":
		var info struct {
			Sub   string `json:"sub"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, err
		}
		return &service.OAuthProfile{
			Provider:    provider,
			Id:          info.Sub,
			Email:       info.Email,
			DisplayName: info.Name,
		}, nil
	default:
		var info struct {
			Id    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, err
		}
		return &service.OAuthProfile{
			Provider:    provider,
			Id:          info.Id,
			Email:       info.Email,
			DisplayName: info.Name,
		}, nil
	}
}
