package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/web/entity"
	"github.com/hivecrest/member-api/web/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
)

func setup() *gin.Engine {
	logger.InitLogger(logging.DEBUG)
	dbPath := "test.db"
	os.Remove(dbPath)
	database.InitDB(dbPath)

	gin.SetMode(gin.TestMode)
	engine := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	engine.Use(sessions.Sessions("member-api", store))
	engine.Use(func(c *gin.Context) {
		c.Set("base_path", "/")
		c.Set("I18n", func(key string, params ...string) string {
			return key
		})
		c.Next()
	})
	engine.Use(middleware.RedirectMiddleware("/"))

	g := engine.Group("/")
	NewIndexController(g)
	NewAuthController(g)
	NewAccountController(g)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})
	return engine
}

func teardown() {
	db, _ := database.GetDB().DB()
	db.Close()
	os.Remove("test.db")
}

func request(engine *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func parseMsg(t *testing.T, w *httptest.ResponseRecorder) entity.Msg {
	var msg entity.Msg
	err := json.Unmarshal(w.Body.Bytes(), &msg)
	assert.NoError(t, err)
	return msg
}

func TestRegisterEndpoint(t *testing.T) {
	engine := setup()
	defer teardown()

	w := request(engine, http.MethodPost, "/register",
		`{"email":"alice@example.org","username":"alice","password":"hunter2"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	msg := parseMsg(t, w)
	assert.True(t, msg.Success)
	obj, ok := msg.Obj.(map[string]any)
	assert.True(t, ok)
	assert.NotZero(t, obj["accountId"])

	// Reusing the email reports a duplicate without a server error
	w = request(engine, http.MethodPost, "/register",
		`{"email":"alice@example.org","username":"alice2","password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	msg = parseMsg(t, w)
	assert.False(t, msg.Success)
	assert.Equal(t, "auth.duplicateIdentifier", msg.Msg)

	w = request(engine, http.MethodPost, "/register", `{"email":"","username":"x"}`, nil)
	msg = parseMsg(t, w)
	assert.False(t, msg.Success)
}

func TestLoginEndpoint(t *testing.T) {
	engine := setup()
	defer teardown()

	request(engine, http.MethodPost, "/register",
		`{"email":"bob@example.org","username":"bob","password":"hunter2"}`, nil)

	// The legacy "user" field works as an identifier alias
	w := request(engine, http.MethodPost, "/login",
		`{"user":"bob","password":"hunter2"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	msg := parseMsg(t, w)
	assert.True(t, msg.Success)
	assert.Equal(t, "auth.loginSuccess", msg.Msg)
	assert.NotEmpty(t, w.Result().Cookies())

	summary, ok := msg.Obj.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "bob@example.org", summary["email"])

	// Wrong password answers 200 with a generic failure
	w = request(engine, http.MethodPost, "/login",
		`{"identifier":"bob","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	msg = parseMsg(t, w)
	assert.False(t, msg.Success)
	assert.Equal(t, "auth.wrongCredentials", msg.Msg)

	// Unknown identifier answers identically
	w = request(engine, http.MethodPost, "/login",
		`{"identifier":"nobody","password":"hunter2"}`, nil)
	msg = parseMsg(t, w)
	assert.False(t, msg.Success)
	assert.Equal(t, "auth.wrongCredentials", msg.Msg)

	w = request(engine, http.MethodPost, "/login", `{"password":"hunter2"}`, nil)
	msg = parseMsg(t, w)
	assert.False(t, msg.Success)
	assert.Equal(t, "auth.emptyIdentifier", msg.Msg)
}

func TestSessionFlow(t *testing.T) {
	engine := setup()
	defer teardown()

	request(engine, http.MethodPost, "/register",
		`{"email":"carol@example.org","username":"carol","password":"pw"}`, nil)

	// Unauthenticated whoAmI is a normal negative answer
	w := request(engine, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	msg := parseMsg(t, w)
	obj := msg.Obj.(map[string]any)
	assert.Equal(t, false, obj["authenticated"])

	w = request(engine, http.MethodPost, "/login",
		`{"identifier":"carol@example.org","password":"pw"}`, nil)
	assert.True(t, parseMsg(t, w).Success)
	cookies := w.Result().Cookies()

	w = request(engine, http.MethodGet, "/me", "", cookies)
	msg = parseMsg(t, w)
	obj = msg.Obj.(map[string]any)
	assert.Equal(t, true, obj["authenticated"])
	account := obj["account"].(map[string]any)
	assert.Equal(t, "carol", account["username"])

	w = request(engine, http.MethodPost, "/logout", "", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, parseMsg(t, w).Success)

	// The old token was revoked server-side
	w = request(engine, http.MethodGet, "/me", "", cookies)
	obj = parseMsg(t, w).Obj.(map[string]any)
	assert.Equal(t, false, obj["authenticated"])

	// Logging out again without a session still succeeds
	w = request(engine, http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, parseMsg(t, w).Success)
}

func TestLegacyRouteRedirects(t *testing.T) {
	engine := setup()
	defer teardown()

	w := request(engine, http.MethodPost, "/signup", "", nil)
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "/register", w.Header().Get("Location"))

	w = request(engine, http.MethodGet, "/whoami", "", nil)
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "/me", w.Header().Get("Location"))
}

func TestCheckLoginGate(t *testing.T) {
	engine := setup()
	defer teardown()

	// No session: 401
	w := request(engine, http.MethodGet, "/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	msg := parseMsg(t, w)
	assert.False(t, msg.Success)
	assert.Equal(t, "auth.loginAgain", msg.Msg)

	w = request(engine, http.MethodGet, "/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	request(engine, http.MethodPost, "/register",
		`{"email":"dana@example.org","username":"dana","password":"pw"}`, nil)
	w = request(engine, http.MethodPost, "/login",
		`{"identifier":"dana","password":"pw"}`, nil)
	cookies := w.Result().Cookies()

	w = request(engine, http.MethodGet, "/account", "", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	summary := parseMsg(t, w).Obj.(map[string]any)
	assert.Equal(t, "dana", summary["username"])
}

func TestCheckLoginStoreFailure(t *testing.T) {
	engine := setup()
	defer teardown()

	request(engine, http.MethodPost, "/register",
		`{"email":"erin@example.org","username":"erin","password":"pw"}`, nil)
	w := request(engine, http.MethodPost, "/login",
		`{"identifier":"erin","password":"pw"}`, nil)
	cookies := w.Result().Cookies()

	// A broken store is 500, not 401: the client should retry, not re-auth
	db, _ := database.GetDB().DB()
	db.Close()

	w = request(engine, http.MethodGet, "/status", "", cookies)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	msg := parseMsg(t, w)
	assert.False(t, msg.Success)
	assert.Equal(t, "auth.serverError", msg.Msg)
}
