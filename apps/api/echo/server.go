package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/metrics"
)

type (
	// LiveConnections upgrades notification websockets.
	LiveConnections interface {
		Serve(w http.ResponseWriter, r *http.Request, userID string) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Pinger     core.Pinger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc         *user.Service
		CategorySvc     *category.Service
		TagSvc          *tag.Service
		SessionSvc      *session.Service
		ProjectSvc      *project.Service
		StatisticsSvc   *statistics.Service
		FriendSvc       *friend.Service
		FeedSvc         *feed.Service
		NotificationSvc *notification.Service
		Live            LiveConnections
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *jwtAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(conf.Server.AllowedOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedOrigins}))
	}
	s.app.Use(metricsMiddleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/health", s.health)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	jwt := s.auth.middleware()
	limiter := rateLimitMiddleware(conf.Server.AuthRateLimit)

	registerUserAPI(s.app.Group(""), jwt, limiter, s.auth, s.deps.UserSvc, s.deps.Validate, s.deps.Logger)
	registerCategoryAPI(s.app.Group("/categories", jwt), s.deps.CategorySvc, s.deps.Validate)
	registerTagAPI(s.app.Group("/tags", jwt), s.deps.TagSvc, s.deps.Validate)
	registerSessionAPI(s.app.Group("/sessions", jwt), s.deps.SessionSvc, s.deps.Validate)
	registerProjectAPI(s.app.Group("/projects", jwt), s.app.Group("/tasks", jwt), s.deps.ProjectSvc, s.deps.StatisticsSvc, s.deps.Validate)
	registerStatisticsAPI(s.app.Group("/statistics", jwt), s.deps.StatisticsSvc)
	registerFriendAPI(s.app.Group("/friends", jwt), s.deps.FriendSvc, s.deps.UserSvc, s.deps.Validate)
	registerFeedAPI(s.app.Group("/feed", jwt), s.deps.FeedSvc, s.deps.UserSvc, s.deps.Validate)
	registerNotificationAPI(
		s.app.Group("/notifications"),
		jwt,
		s.auth.queryMiddleware(),
		s.deps.NotificationSvc,
		s.deps.Live,
		s.deps.Validate,
	)
}

// Start blocks while serving; a failure is reported on Errors.
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "serving API")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the Server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Nowaster API!")
}

func (s *Server) health(ctx echo.Context) error {
	status := echo.Map{"status": "ok", "build": s.deps.Conf.Build}
	if s.deps.Pinger != nil {
		pctx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Pinger.PingContext(pctx); err != nil {
			s.deps.Logger.Warn("health check failed", err)
			status["status"] = "db not ready"
			return ctx.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return ctx.JSON(http.StatusOK, status)
}
