package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/service"
)

const (
	// SessionHeader carries the session key for clients without cookies
	SessionHeader = "X-Session-Key"

	// DefaultSessionCookie is the cookie holding the session key
	DefaultSessionCookie = "captchauth_session"
)

// Options configures the HTTP surface
type Options struct {
	// SessionCookie names the session cookie
	SessionCookie string
	// SecureCookie marks the session cookie Secure
	SecureCookie bool
	// ExposeChallenge returns the challenge value in the challenge response.
	// For development only: normally the value is rendered out of band.
	ExposeChallenge bool
	// Metrics serves the Prometheus registry on /metrics
	Metrics bool
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	opts        Options
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, opts Options) *AuthHandlers {
	if opts.SessionCookie == "" {
		opts.SessionCookie = DefaultSessionCookie
	}
	return &AuthHandlers{
		authService: authService,
		opts:        opts,
	}
}

// Challenge issues a challenge to the caller's session, creating the session
// key when the caller has none
func (h *AuthHandlers) Challenge(c *gin.Context) {
	sessionKey := h.sessionKey(c)
	if sessionKey == "" {
		sessionKey = uuid.New().String()
	}

	challenge, err := h.authService.IssueChallenge(c.Request.Context(), sessionKey)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to issue challenge", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, core.KindStoreUnavailable.Payload())
		return
	}

	maxAge := int(time.Until(challenge.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.opts.SessionCookie, sessionKey, maxAge, "/", "", h.opts.SecureCookie, true)

	body := gin.H{
		"session_key": sessionKey,
		"expires_at":  challenge.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if h.opts.ExposeChallenge {
		body["challenge"] = challenge.Value
	}
	c.JSON(http.StatusOK, body)
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	receivedAt := time.Now()

	fields, err := h.fields(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp := h.authService.Login(c.Request.Context(), core.RawRequest{
		Fields:        fields,
		SessionKey:    h.sessionKey(c),
		OriginAddress: c.ClientIP(),
		ReceivedAt:    receivedAt,
	})
	if resp.Failure != nil {
		c.JSON(statusFor(resp.Kind), resp.Failure)
		return
	}

	c.JSON(http.StatusOK, resp.Tokens)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		case errors.Is(err, core.ErrStoreUnavailable):
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	switch {
	case err == nil, errors.Is(err, core.ErrTokenExpired):
		// An expired refresh token can no longer be used anyway.
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	case errors.Is(err, core.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
	}
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject": session.Subject,
		"roles":   session.Roles,
	})
}

// Authorize checks whether the authenticated user holds the requested role
func (h *AuthHandlers) Authorize(c *gin.Context) {
	session, ok := SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	if role := c.Query("role"); role != "" && !session.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"authorized": false, "subject": session.Subject})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"subject":    session.Subject,
	})
}

// sessionKey reads the session key from the header, then the cookie
func (h *AuthHandlers) sessionKey(c *gin.Context) string {
	if key := c.GetHeader(SessionHeader); key != "" {
		return key
	}
	key, _ := c.Cookie(h.opts.SessionCookie)
	return key
}

// fields reads the submitted login fields from a JSON or form body
func (h *AuthHandlers) fields(c *gin.Context) (map[string]string, error) {
	if c.ContentType() == binding.MIMEJSON {
		body := map[string]any{}
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(body))
		for name, value := range body {
			if v, ok := scalarString(value); ok {
				fields[name] = v
			}
		}
		return fields, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	names := h.authService.Fields()
	fields := make(map[string]string, 3)
	for _, name := range []string{names.Identifier, names.Secret, names.Challenge} {
		fields[name] = c.Request.PostForm.Get(name)
	}
	return fields, nil
}

// scalarString renders a decoded JSON scalar the way a form would submit it.
// Objects, arrays and null are dropped.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func statusFor(kind core.FailureKind) int {
	if kind == core.KindStoreUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}
