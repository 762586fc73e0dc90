package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/auth"
	"github.com/kbukum/scribe/auth/authctx"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	Validator auth.TokenValidator
	// SkipPaths are path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth validates the bearer token and stores the claims and identity in the
// request context. A missing, malformed or invalid token answers 401 before
// any handler runs.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, apperrors.FromError(err))
			return
		}
		claims, err := cfg.Validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, apperrors.Unauthorized("Invalid or expired token."))
			return
		}

		ctx := authctx.Set(c.Request.Context(), claims)
		id, err := authctx.Identity(ctx)
		if err != nil {
			abortWithError(c, apperrors.Unauthorized("Token carries no user id."))
			return
		}
		ctx = logger.ContextWithUserID(ctx, id.UserID)
		c.Set(logger.FieldUserID, id.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
