// Package entity defines data structures shared by the web layer of the
// member API.
package entity

import (
	"crypto/tls"
	"math"
	"net"
	"strings"

	"github.com/hivecrest/member-api/util/common"
)

// Msg represents a standard API response message with success status, message text, and optional data object.
type Msg struct {
	Success bool   `json:"success"` // Indicates if the operation was successful
	Msg     string `json:"msg"`     // Response message text
	Obj     any    `json:"obj"`     // Optional data object
}

// AccountSummary is the account view returned by login, whoAmI and the
// OAuth callback. It never carries credential material.
type AccountSummary struct {
	Id               int    `json:"id"`
	Email            string `json:"email"`
	Username         string `json:"username"`
	DisplayName      string `json:"displayName"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// AllSetting contains the configurable settings of the member API server.
type AllSetting struct {
	// Web server settings
	WebListen     string `json:"webListen" form:"webListen"`         // Web server listen IP address
	WebDomain     string `json:"webDomain" form:"webDomain"`         // Web server domain for domain validation
	WebPort       int    `json:"webPort" form:"webPort"`             // Web server port number
	WebCertFile   string `json:"webCertFile" form:"webCertFile"`     // Path to SSL certificate file
	WebKeyFile    string `json:"webKeyFile" form:"webKeyFile"`       // Path to SSL private key file
	WebBasePath   string `json:"webBasePath" form:"webBasePath"`     // Base path for all routes
	SessionMaxAge int    `json:"sessionMaxAge" form:"sessionMaxAge"` // Session maximum age in minutes
	CorsOrigin    string `json:"corsOrigin" form:"corsOrigin"`       // Allowed CORS origin for the frontend
	TimeLocation  string `json:"timeLocation" form:"timeLocation"`   // Time zone for scheduled jobs

	// OAuth provider credentials. A provider with an empty client id is
	// treated as disabled.
	GoogleClientId       string `json:"googleClientId" form:"googleClientId"`
	GoogleClientSecret   string `json:"googleClientSecret" form:"googleClientSecret"`
	FacebookClientId     string `json:"facebookClientId" form:"facebookClientId"`
	FacebookClientSecret string `json:"facebookClientSecret" form:"facebookClientSecret"`
	OAuthRedirectBase    string `json:"oauthRedirectBase" form:"oauthRedirectBase"` // External base URL for OAuth callbacks
}

// CheckValid validates the settings, checking the listen address, port,
// SSL certificate pair and base path.
func (s *AllSetting) CheckValid() error {
	if s.WebListen != "" {
		ip := net.ParseIP(s.WebListen)
		if ip == nil {
			return common.NewError("web listen is not valid ip:", s.WebListen)
		}
	}

	if s.WebPort <= 0 || s.WebPort > math.MaxUint16 {
		return common.NewError("web port is not a valid port:", s.WebPort)
	}

	if s.WebCertFile != "" || s.WebKeyFile != "" {
		_, err := tls.LoadX509KeyPair(s.WebCertFile, s.WebKeyFile)
		if err != nil {
			return common.NewErrorf("cert file <%v> or key file <%v> invalid: %v", s.WebCertFile, s.WebKeyFile, err)
		}
	}

	if s.SessionMaxAge <= 0 {
		return common.NewError("session max age must be positive:", s.SessionMaxAge)
	}

	if !strings.HasPrefix(s.WebBasePath, "/") {
		s.WebBasePath = "/" + s.WebBasePath
	}
	if !strings.HasSuffix(s.WebBasePath, "/") {
		s.WebBasePath += "/"
	}

	return nil
}
