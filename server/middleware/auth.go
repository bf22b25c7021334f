package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/errors"
)

// BearerToken guards a route group with a static API token sent as
// "Authorization: Bearer <token>". An empty token disables the check.
func BearerToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, errors.Unauthorized("authorization header required"))
			return
		}
		scheme, got, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			abort(c, errors.Unauthorized("invalid authorization header format"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			abort(c, errors.Unauthorized("invalid token"))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
