package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/auth"
	"resume-pipeline/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
	identityKey  = "identity"

	maxIdentityLen = 128
)

// Identity is the caller a request acts for. Submissions are owned by UserID.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Guest  bool   `json:"isGuest"`
	// Method is "bearer", "gateway" or "guest".
	Method string `json:"method"`
}

var errNoIdentity = errors.New("missing identity")

// AuthConfig controls which identity headers are believed.
type AuthConfig struct {
	// TrustGatewayHeader accepts X-User-Id. Off, the header is ignored.
	TrustGatewayHeader bool
}

// Auth resolves the caller from a bearer JWT, a trusted X-User-Id header set by
// the fronting gateway, or an X-Guest-Id header, in that order. Health and
// metrics stay open.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		switch c.Request.URL.Path {
		case "/api/v1/health", "/metrics":
			c.Next()
			return
		}

		id, err := resolveIdentity(c.Request, cfg)
		if err != nil {
			msg := "missing or invalid token"
			if errors.Is(err, errNoIdentity) {
				msg = "Missing identity"
			}
			respond.Error(c, http.StatusUnauthorized, "unauthorized", msg, nil)
			return
		}

		c.Set(identityKey, id)
		c.Set(userIDKey, id.UserID)
		c.Set("isGuest", id.Guest)
		if id.Email != "" {
			c.Set(userEmailKey, id.Email)
		}
		if id.Name != "" {
			c.Set(userNameKey, id.Name)
		}
		c.Next()
	}
}

func resolveIdentity(r *http.Request, cfg AuthConfig) (Identity, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return Identity{}, auth.ErrInvalidToken
		}
		claims, err := auth.VerifyJWT(token)
		if err != nil {
			return Identity{}, err
		}
		return Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name, Method: "bearer"}, nil
	}

	if userID := strings.TrimSpace(r.Header.Get("X-User-Id")); cfg.TrustGatewayHeader && userID != "" {
		if !validIdentity(userID) {
			return Identity{}, auth.ErrInvalidToken
		}
		return Identity{UserID: userID, Method: "gateway"}, nil
	}

	if guestID := strings.TrimSpace(r.Header.Get("X-Guest-Id")); guestID != "" {
		if !validIdentity(guestID) {
			return Identity{}, auth.ErrInvalidToken
		}
		return Identity{UserID: "guest:" + guestID, Guest: true, Method: "guest"}, nil
	}
	return Identity{}, errNoIdentity
}

func validIdentity(s string) bool {
	if len(s) > maxIdentityLen {
		return false
	}
	for _, r := range s {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// IdentityFromContext returns the identity set by Auth.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	if c == nil {
		return Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := val.(Identity)
	return id, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
