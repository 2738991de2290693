package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/auth"
	"github.com/festa-dev/festa-backend/internal/auth/middleware"
	"github.com/festa-dev/festa-backend/internal/conf"
	"github.com/festa-dev/festa-backend/internal/media/service"
	"github.com/festa-dev/festa-backend/internal/pkg/database"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	"github.com/festa-dev/festa-backend/internal/pkg/redis"
)

// HTTPServer hosts the guest-facing API.
type HTTPServer struct {
	srv *http.Server
	log *logger.Logger
}

// NewHTTPServer assembles the router and middleware chain. redisClient may
// be nil, in which case grant issuance runs without rate limiting.
func NewHTTPServer(
	cfg *conf.ServerConfig,
	mediaService *service.MediaService,
	jwtManager *auth.JWTManager,
	redisClient *redis.Client,
	db *database.DB,
	log *logger.Logger,
) *HTTPServer {
	router := gin.New()
	router.Use(logger.GinLogger(log), logger.GinRecovery(log))

	router.GET("/health", func(c *gin.Context) {
		if db != nil {
			if err := db.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var grantLimiter gin.HandlerFunc
	if redisClient != nil {
		grantLimiter = middleware.GrantRateLimiter(redisClient, log)
	}

	api := router.Group("/api/v1")
	authed := api.Group("", middleware.JWTAuth(jwtManager, log))
	mediaService.RegisterRoutes(authed, grantLimiter)

	return &HTTPServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start blocks serving requests until Stop is called
func (s *HTTPServer) Start() error {
	s.log.Info("http server starting", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.log.Info("http server stopping")
	return s.srv.Shutdown(ctx)
}
