package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/config"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/response"
)

// AuthMiddleware resolves the bearer token to a user and stores it in
// the request context; handlers pick their tracker by that user. In
// development the local single-token provider is used, otherwise the
// remote account service.
func AuthMiddleware(provider Provider, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Missing bearer token"))
			return
		}

		var user interface{}
		var err error
		if cfg.Env == "development" {
			user, err = provider.ValidateTokenLocal(token)
		} else {
			user, err = provider.ValidateTokenRemote(c.Request.Context(), token)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid token"))
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
