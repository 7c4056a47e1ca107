// Package server is a Kanboard-compatible JSON-RPC endpoint backed by SQLite.
//
// It implements the subset of the Kanboard API used for provisioning, answering
// refused operations with false the way Kanboard does, so the provisioning tools can
// run end to end without a real board.
package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ldap2kanboard/internal/storage/sqlite"
)

// Server provides the JSON-RPC endpoint and a small read-only inspection API.
type Server struct {
	engine   *gin.Engine
	store    *sqlite.Store
	logger   *slog.Logger
	accounts gin.Accounts
	methods  map[string]method
}

// New constructs the HTTP server with routes and middleware configured. When
// accounts is not empty every route except the health check requires basic auth.
func New(store *sqlite.Store, logger *slog.Logger, accounts gin.Accounts) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:   router,
		store:    store,
		logger:   logger,
		accounts: accounts,
	}

	srv.registerMethods()
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the JSON-RPC endpoint and the inspection API together.
func (s *Server) registerRoutes() {
	s.engine.GET("/api/healthz", s.handleHealth)

	protected := s.engine.Group("/")
	if len(s.accounts) > 0 {
		protected.Use(gin.BasicAuth(s.accounts))
	}

	protected.POST("/jsonrpc.php", s.handleRPC)

	api := protected.Group("/api")
	{
		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.GET(":id", s.handleGetProject)
			projects.GET(":id/tasks", s.handleListTasks)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int with error handling.
func parseID(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
