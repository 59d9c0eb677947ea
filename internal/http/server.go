// Package http assembles the Gin HTTP API server: routing, middleware and
// lifecycle.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	"github.com/allisson/authcore/internal/config"
	credentialHTTP "github.com/allisson/authcore/internal/credential/http"
	cryptoHTTP "github.com/allisson/authcore/internal/crypto/http"
	"github.com/allisson/authcore/internal/metrics"
	sessionHTTP "github.com/allisson/authcore/internal/session/http"
	sessionUsecase "github.com/allisson/authcore/internal/session/usecase"
)

// RouterConfig holds everything the router needs to mount the API.
type RouterConfig struct {
	Config            *config.Config
	Logger            *slog.Logger
	SessionUseCase    sessionUsecase.UseCase
	AuthHandler       *sessionHTTP.AuthHandler
	CredentialHandler *credentialHTTP.CredentialHandler
	FieldHandler      *cryptoHTTP.FieldHandler

	// MeterProvider enables HTTP metrics when set.
	MeterProvider metric.MeterProvider
}

// NewRouter builds the Gin engine with all middleware and routes.
func NewRouter(rc RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(rc.Logger))

	if corsMiddleware := createCORSMiddleware(
		rc.Config.CORSEnabled,
		rc.Config.CORSAllowOrigins,
		rc.Logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if rc.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(rc.MeterProvider, rc.Config.MetricsNamespace))
	}

	router.GET("/health", healthHandler)
	router.GET("/ready", readyHandler)

	authMiddleware := sessionHTTP.AccessTokenMiddleware(rc.SessionUseCase, rc.Logger)

	v1 := router.Group("/v1")
	{
		v1.POST("/subjects", rc.CredentialHandler.RegisterHandler)

		auth := v1.Group("/auth")
		{
			loginHandlers := []gin.HandlerFunc{rc.AuthHandler.LoginHandler}
			if rc.Config.RateLimitLoginEnabled {
				loginHandlers = append([]gin.HandlerFunc{
					sessionHTTP.LoginRateLimitMiddleware(
						rc.Config.RateLimitLoginRequestsPerSec,
						rc.Config.RateLimitLoginBurst,
						rc.Logger,
					),
				}, loginHandlers...)
			}
			auth.POST("/login", loginHandlers...)
			auth.POST("/refresh", rc.AuthHandler.RefreshHandler)
			auth.POST("/logout", rc.AuthHandler.LogoutHandler)
			auth.GET("/verify", authMiddleware, rc.AuthHandler.VerifyHandler)
		}

		v1.POST("/password", authMiddleware, rc.CredentialHandler.ChangeSecretHandler)

		field := v1.Group("/field", authMiddleware)
		{
			field.POST("/encrypt", rc.FieldHandler.EncryptFieldHandler)
			field.POST("/decrypt", rc.FieldHandler.DecryptFieldHandler)
		}
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func readyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Server is the API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the API server around the given handler.
func NewServer(host string, port int, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
