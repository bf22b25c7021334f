package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/version"
)

// Version reports the build of the running binary.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	}
}
