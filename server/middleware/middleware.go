package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware is the plain net/http middleware shape. The server applies the
// stack around its whole handler so every route gets it.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares; the first one is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap runs mw as gin middleware for a single route group.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}
