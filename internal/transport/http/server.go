package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sigil/internal/engine"
	"sigil/internal/ledger"
	"sigil/internal/logger"
	"sigil/internal/market"
	"sigil/internal/stats"

	"github.com/gin-gonic/gin"
)

// Server exposes read-only observability endpoints: engine status, the
// transaction ledger and trailing-window stats.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr        string
	Engine      *engine.Engine
	Ledger      *ledger.Ledger
	WindowWeeks int
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil || cfg.Ledger == nil {
		return nil, errors.New("http server requires engine and ledger")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9985"
	}
	if cfg.WindowWeeks <= 0 {
		cfg.WindowWeeks = 4
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		st := cfg.Engine.Status()
		if st.Degraded {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": st.DegradedReason})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg.Engine.Status())
	})
	api.GET("/transactions", func(c *gin.Context) {
		entries := cfg.Ledger.Entries()
		out := make([]gin.H, len(entries))
		for i, e := range entries {
			out[i] = gin.H{
				"timestamp": e.Timestamp.Format(time.RFC3339),
				"price":     e.Price.StringFixed(2),
				"profit":    e.Profit.StringFixed(2),
				"status":    e.Status,
			}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(out), "transactions": out})
	})
	api.GET("/stats", func(c *gin.Context) {
		side := market.Side(c.DefaultQuery("side", string(market.SideSell)))
		if side != market.SideBuy && side != market.SideSell {
			c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
			return
		}
		window := time.Duration(cfg.WindowWeeks) * 7 * 24 * time.Hour
		snap, err := stats.Compute(cfg.Ledger.Entries(), side, window, time.Now().UTC())
		if errors.Is(err, stats.ErrInsufficientData) {
			c.JSON(http.StatusOK, gin.H{"side": side, "insufficient_data": true})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"side": side, "profit": snap.Profit, "profit_percent": snap.ProfitPct})
	})

	return &Server{addr: cfg.Addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
