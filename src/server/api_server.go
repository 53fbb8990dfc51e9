package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Service interfaces.IBookService

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MBookView
	direct     chan clientMessage
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	// Local cache of the last pushed view
	latestView  models.MBookView
	connections int
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewAPIServer builds the HTTP API. metricsHandler is mounted on /metrics when non-nil.
func NewAPIServer(cfg *models.MConfig, service interfaces.IBookService, metricsHandler http.Handler, logger *logger.Logger) *APIServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:     cfg,
		Logger:     logger,
		Service:    service,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MBookView, 256),
		direct:     make(chan clientMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// CORS for local dashboards
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes(metricsHandler)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes(metricsHandler http.Handler) {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	// symbols contain a slash, e.g. /api/book/BTC/USD
	api.GET("/book/*symbol", s.getBook)
	api.GET("/view", s.getView)
	api.GET("/history", s.getHistory)
	api.GET("/history/:index", s.getHistoryEntry)

	api.PUT("/symbol", s.putSymbol)
	api.PUT("/timetravel", s.putTimeTravel)
	api.PUT("/timetravel/cursor", s.putCursor)

	if metricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)
	go s.runHub()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.stopOnce.Do(func() { close(s.quit) })
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	latest := s.latestView.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.clientCount(),
		"latest_update": latest,
		"engine":        s.Service.Status(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tokens":           s.Config.Tokens,
		"default_symbol":   s.Config.DefaultSymbol,
		"depth":            s.Config.Book.Depth,
		"history_capacity": s.Config.Book.HistoryCapacity,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getBook(c *gin.Context) {
	symbol := strings.TrimPrefix(c.Param("symbol"), "/")
	state, ok := s.Service.BookState(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no book for %q", symbol)})
		return
	}
	c.JSON(http.StatusOK, state)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getView(c *gin.Context) {
	c.JSON(http.StatusOK, s.Service.CurrentView())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHistory(c *gin.Context) {
	st := s.Service.Status()
	c.JSON(http.StatusOK, gin.H{
		"symbol":   st.DesiredSymbol,
		"enabled":  st.TimeTravelEnabled,
		"index":    st.HistoryIndex,
		"length":   st.HistoryLength,
		"capacity": st.HistoryCapacity,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHistoryEntry(c *gin.Context) {
	index, ok := parseIndex(c.Param("index"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	entry, found := s.Service.HistoryEntry(index)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no history entry %d", index)})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// -----------------------------------------------------------------------------

func (s *APIServer) putSymbol(c *gin.Context) {
	var body struct {
		Symbol string `json:"symbol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondCommand(c, s.Service.SetSymbol(c.Request.Context(), body.Symbol))
}

// -----------------------------------------------------------------------------

// putTimeTravel sets the mode when "enabled" is given and toggles it otherwise.
func (s *APIServer) putTimeTravel(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if body.Enabled == nil {
		s.respondCommand(c, s.Service.ToggleTimeTravel(c.Request.Context()))
		return
	}
	s.respondCommand(c, s.Service.SetTimeTravel(c.Request.Context(), *body.Enabled))
}

// -----------------------------------------------------------------------------

func (s *APIServer) putCursor(c *gin.Context) {
	var body struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondCommand(c, s.Service.Scrub(c.Request.Context(), *body.Index))
}

// -----------------------------------------------------------------------------

// respondCommand answers with the resulting view, or the mapped error.
func (s *APIServer) respondCommand(c *gin.Context, err error) {
	if err != nil {
		code := statusForError(err)
		if code >= http.StatusInternalServerError {
			s.Logger.Error("Command %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.Service.CurrentView())
}
