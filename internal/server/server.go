// Package server provides the HTTP API for bunrui.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/core"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// maxBodyBytes bounds request bodies; documents arrive as extracted text.
const maxBodyBytes = 4 << 20

// Server is the HTTP server for the bunrui API.
type Server struct {
	engine *core.Engine
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server over the core engine.
func NewServer(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		config: cfg,
		logger: utils.OrNop(logger),
	}
}

// Routes returns the router with all API routes mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/learn", s.handleLearn)
		r.Post("/predict", s.handlePredict)
		r.Post("/classify", s.handleClassify)
		r.Post("/entities/score", s.handleScoreEntity)
		r.Post("/models/train", s.handleTrain)
		r.Post("/models/retrain", s.handleRetrain)
		r.Get("/models/{language}", s.handleModels)
		r.Post("/blacklist/sync", s.handleSyncBlacklist)
		r.Get("/overlaps", s.handleOverlaps)
		r.Post("/keywords", s.handleAddKeyword)
		r.Delete("/keywords/{id}", s.handleDeleteKeyword)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
