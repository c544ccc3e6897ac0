package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"facewatch-go/internal/api/middleware"
	"facewatch-go/internal/config"
	"facewatch-go/internal/i18n"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	// SnapshotRoute is where files from the snapshot directory are served
	SnapshotRoute = "/snapshots"

	sessionName = "facewatch_session"
)

// RouteRegistrar adds routes to the /api group
type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

// Server is the HTTP API server
type Server struct {
	cfg        config.ServerConfig
	engine     *gin.Engine
	httpServer *http.Server
}

// New builds the gin engine and registers every registrar under /api
func New(cfg config.ServerConfig, translator *i18n.Translator, registrars ...RouteRegistrar) *Server {
	if log.GetLevel() < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
	})
	engine.Use(sessions.Sessions(sessionName, store))
	engine.Use(middleware.I18n(translator))

	api := engine.Group("/api")
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}

	if cfg.SnapshotDir != "" {
		engine.Static(SnapshotRoute, cfg.SnapshotDir)
		log.Infof("Serving snapshots from %s under %s", cfg.SnapshotDir, SnapshotRoute)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		cfg:    cfg,
		engine: engine,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}

// Handler returns the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
