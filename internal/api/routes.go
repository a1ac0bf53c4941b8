package api

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/auth"
	"github.com/satriahrh/robozinho/internal/gateway"
)

const maxBodySize = 1 << 20

// SyncHandler answers a turn request with one response
type SyncHandler interface {
	HandleSync(ctx context.Context, body []byte) gateway.Result
}

// Dependencies are the collaborators the routes are served by. Robots and
// Tokens may be nil, in which case the admin API is not mounted.
type Dependencies struct {
	Gateway   SyncHandler
	WebSocket echo.HandlerFunc
	Robots    repositories.RobotRepository
	Tokens    *auth.TokenManager
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "robozinho-server",
		})
	})

	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodOptions, http.MethodGet, http.MethodPost, http.MethodDelete},
	}))

	v1.POST("/invoke", func(c echo.Context) error {
		return invoke(c, deps.Gateway, deps.Logger)
	})

	if deps.Robots != nil && deps.Tokens != nil {
		robots := &robotHandlers{repo: deps.Robots, logger: deps.Logger}
		group := v1.Group("/robots", RequireOwner(deps.Tokens, deps.Logger))
		group.POST("", robots.create)
		group.GET("", robots.list)
		group.DELETE("/:id", robots.delete)
	}

	if deps.WebSocket != nil {
		e.GET("/ws", deps.WebSocket)
	}
}

// invoke serves the synchronous mode of the turn gateway
func invoke(c echo.Context, handler SyncHandler, logger *zap.Logger) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		logger.Error("Failed to read request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
	}

	result := handler.HandleSync(c.Request().Context(), body)
	c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
	return c.JSON(result.StatusCode, result.Body)
}
