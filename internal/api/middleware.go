package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/internal/auth"
)

const ownerIDKey = "ownerID"

// RequireOwner rejects requests without a valid bearer token and stores the
// token subject as the owner ID.
func RequireOwner(tokens *auth.TokenManager, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token not provided"})
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				logger.Warn("Rejected request: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
			}

			c.Set(ownerIDKey, claims.Subject)
			return next(c)
		}
	}
}

func ownerID(c echo.Context) string {
	id, _ := c.Get(ownerIDKey).(string)
	return id
}
