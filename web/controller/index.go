package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hivecrest/member-api/config"
	"github.com/hivecrest/member-api/web/service"

	"github.com/gin-gonic/gin"
)

// IndexController serves the root banner and the health and status routes.
type IndexController struct {
	BaseController

	serverService service.ServerService
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup) *IndexController {
	a := &IndexController{}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.index)
	g.GET("/healthz", a.healthz)
	g.GET("/test", a.test)

	status := g.Group("/status")
	status.Use(a.checkLogin)
	status.GET("", a.status)
	status.GET("/logs", a.logs)
}

// index answers with a plain-text banner so a browser check shows the
// service is up.
func (a *IndexController) index(c *gin.Context) {
	c.String(http.StatusOK, fmt.Sprintf("%s %s — %s", config.GetName(), config.GetVersion(), I18nWeb(c, "online")))
}

// healthz reports liveness plus coarse host health for monitoring.
func (a *IndexController) healthz(c *gin.Context) {
	status := a.serverService.GetStatus()
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"time":   time.Now().UnixMilli(),
		"uptime": status.AppStats.Uptime,
		"loads":  status.Loads,
	})
}

// test is the JSON probe endpoint kept for frontend connectivity checks.
func (a *IndexController) test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "member API test route is working",
	})
}

// status returns the full host/process snapshot. Signed-in members only.
func (a *IndexController) status(c *gin.Context) {
	jsonObj(c, a.serverService.GetStatus(), nil)
}

// logs returns recent log lines from the in-memory buffer.
func (a *IndexController) logs(c *gin.Context) {
	count := c.DefaultQuery("count", "50")
	level := c.DefaultQuery("level", "INFO")
	jsonObj(c, a.serverService.GetLogs(count, level), nil)
}
