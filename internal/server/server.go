// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raphaelgruber/scrt-agent/internal/agent"
	"github.com/raphaelgruber/scrt-agent/internal/memory"
	"github.com/raphaelgruber/scrt-agent/internal/metrics"
	"github.com/raphaelgruber/scrt-agent/internal/models"
)

// TurnHandler runs one chat turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, text string) agent.Response
}

// StatusReader reports the trading flag.
type StatusReader interface {
	IsConvinced(ctx context.Context, userID string) (bool, error)
}

// HistoryLoader returns a user's history.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, userID string) ([]models.Exchange, memory.Source, error)
}

// BalanceLister returns the wallet's token balances.
type BalanceLister interface {
	Balances(ctx context.Context) []agent.Balance
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Agent    TurnHandler
	Status   StatusReader
	History  HistoryLoader
	Balances BalanceLister
	Metrics  *metrics.Collector
}

// Server wraps the gin engine with dependencies and lifecycle management.
type Server struct {
	engine *gin.Engine
	deps   Deps
	logger *slog.Logger

	// turnMu serializes chat turns; the agent runs one turn at a time.
	turnMu sync.Mutex
}

// New creates the server and registers its routes.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{engine: gin.New(), deps: deps, logger: logger}
	s.engine.Use(gin.Recovery(), LoggingMiddleware(logger))

	s.engine.GET("/healthz", s.handleHealth)
	v1 := s.engine.Group("/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/users/:id/status", s.handleStatus)
	v1.GET("/users/:id/history", s.handleHistory)
	v1.GET("/balances", s.handleBalances)
	v1.GET("/stats", s.handleStats)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	// Let an in-flight turn finish its trade confirmation.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and user_id are required"})
		return
	}

	s.turnMu.Lock()
	resp := s.deps.Agent.HandleTurn(c.Request.Context(), req.UserID, req.Message)
	s.turnMu.Unlock()

	body := gin.H{
		"user_id":  req.UserID,
		"response": resp.Text,
		"kind":     resp.Kind,
		"saved":    resp.PersistErr == nil,
	}
	if resp.Trade != nil {
		body["trade"] = resp.Trade
	}
	if resp.Source != "" {
		body["history_source"] = resp.Source
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleStatus(c *gin.Context) {
	userID := c.Param("id")
	convinced, err := s.deps.Status.IsConvinced(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read trading state"})
		return
	}
	c.JSON(http.StatusOK, models.TradingState{UserID: userID, Convinced: convinced})
}

func (s *Server) handleHistory(c *gin.Context) {
	userID := c.Param("id")
	history, source, err := s.deps.History.LoadHistory(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "source": source, "history": history})
}

func (s *Server) handleBalances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"balances": s.deps.Balances.Balances(c.Request.Context())})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.deps.Metrics == nil {
		c.JSON(http.StatusOK, metrics.Snapshot{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Metrics.Snapshot())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
