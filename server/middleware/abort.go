// Package middleware holds the gin middleware used by the HTTP server.
package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribe/errors"
)

func abortWithError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
