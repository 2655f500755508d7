package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/app"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/auth"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/config"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/gateway"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/metrics"
)

// Server is the HTTP and websocket front end.
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	logger  *slog.Logger
	svc     *app.Service
	auth    *auth.Service
	gateway *gateway.Gateway
	stats   gateway.StatsProvider
	limiter *ConnectionLimiter
	pool    *pgxpool.Pool
	rdb     *redis.Client
	clock   clockwork.Clock
}

// New assembles the server with its middleware and routes.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	svc *app.Service,
	authSvc *auth.Service,
	gw *gateway.Gateway,
	statsProvider gateway.StatsProvider,
	pool *pgxpool.Pool,
	rdb *redis.Client,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperrors.ErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestMetrics)

	s := &Server{
		echo:    e,
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		auth:    authSvc,
		gateway: gw,
		stats:   statsProvider,
		limiter: NewConnectionLimiter(
			cfg.MaxWebSocketConnections,
			cfg.MaxConnectionsPerIP,
			cfg.ConnectionRatePerSecond,
			cfg.ConnectionRateBurst,
		),
		pool:  pool,
		rdb:   rdb,
		clock: clock,
	}
	s.registerRoutes()
	return s
}

// Start begins serving and blocks until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	s.logger.Info("server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// requestMetrics records handler latency per route.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = apperrors.HTTPStatus(err)
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request().Method,
			c.Path(),
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
		return err
	}
}
