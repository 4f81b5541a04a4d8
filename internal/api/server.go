package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"equity-signal-engine/config"
	"equity-signal-engine/internal/database"
	"equity-signal-engine/internal/knowledge"
	"equity-signal-engine/internal/pipeline"
	"equity-signal-engine/internal/universe"
)

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	repo         *database.Repository
	orchestrator *pipeline.Orchestrator
	engine       *knowledge.Engine
	matcher      *knowledge.Matcher
	universe     universe.Provider
	config       config.ServerConfig
	logger       zerolog.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	repo *database.Repository,
	orchestrator *pipeline.Orchestrator,
	engine *knowledge.Engine,
	matcher *knowledge.Matcher,
	universeProvider universe.Provider,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:       router,
		repo:         repo,
		orchestrator: orchestrator,
		engine:       engine,
		matcher:      matcher,
		universe:     universeProvider,
		config:       cfg,
		logger:       logger,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/scan", s.handleScan)
		api.GET("/signals", s.handleGetSignals)
		api.GET("/signals/:id", s.handleGetSignal)
		api.GET("/signals/:id/indicators", s.handleGetSignalIndicators)
		api.GET("/signals/:id/matches", s.handleGetSignalMatches)
		api.GET("/insights", s.handleGetInsights)
	}
}

// Start runs the HTTP server and blocks until it shuts down
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
