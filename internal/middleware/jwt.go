package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/pkg/errcode"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/jwt"
	"github.com/xxxsen/phishsim/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "user_email"
	ContextClaimsKey = "user_claims"
)

type TokenVerifier interface {
	VerifyAccess(token string) (*jwt.Claims, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextClaimsKey, claims)
	if claims.Email != "" {
		c.Set(ContextEmailKey, claims.Email)
	}
}

func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		claims, err := verifier.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, appErr.ErrTokenExpired) {
				response.Error(c, http.StatusUnauthorized, errcode.ErrTokenExpired, "token expired")
			} else {
				response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
			}
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// AdminChecker reports the stored admin flag of a user.
type AdminChecker interface {
	RequireAdmin(ctx context.Context, userID int64) error
}

// RequireAdmin must run after JWTAuth. The admin flag is read from the store
// on every request; the is_admin claim is ignored.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(ContextUserIDKey)
		id, _ := userID.(int64)
		if id == 0 {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		if err := checker.RequireAdmin(c.Request.Context(), id); err != nil {
			switch {
			case errors.Is(err, appErr.ErrForbidden):
				response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "admin access required")
			case errors.Is(err, appErr.ErrUnauthorized):
				response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
			default:
				response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
