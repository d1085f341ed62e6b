// Package session stores the server-side session token in the gin cookie
// session. Only the opaque token travels in the cookie; the account id it
// maps to lives in the sessions table and is resolved per request.
package session

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionToken = "SESSION_TOKEN"
	oauthState   = "OAUTH_STATE"
)

// SetToken stores the session token in the cookie session.
func SetToken(c *gin.Context, token string) error {
	s := sessions.Default(c)
	s.Set(sessionToken, token)
	return s.Save()
}

// SetMaxAge adjusts the cookie lifetime, in seconds.
func SetMaxAge(c *gin.Context, maxAge int) error {
	s := sessions.Default(c)
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	})
	return s.Save()
}

// GetToken returns the session token from the cookie session, or "" when
// the requester has none.
func GetToken(c *gin.Context) string {
	s := sessions.Default(c)
	if obj := s.Get(sessionToken); obj != nil {
		if token, ok := obj.(string); ok {
			return token
		}
	}
	return ""
}

// SetOAuthState stores the state nonce for an in-flight OAuth handshake.
func SetOAuthState(c *gin.Context, state string) error {
	s := sessions.Default(c)
	s.Set(oauthState, state)
	return s.Save()
}

// TakeOAuthState returns and consumes the stored OAuth state nonce, so a
// state can only be redeemed once.
func TakeOAuthState(c *gin.Context) string {
	s := sessions.Default(c)
	obj := s.Get(oauthState)
	if obj == nil {
		return ""
	}
	s.Delete(oauthState)
	if err := s.Save(); err != nil {
		return ""
	}
	if state, ok := obj.(string); ok {
		return state
	}
	return ""
}

// ClearSession drops the cookie session and expires the cookie.
func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	return s.Save()
}
