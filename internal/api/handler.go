package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signal-gateway/internal/monitor"
	"signal-gateway/internal/pipeline"
)

// Pipeline handles one raw alert. *pipeline.Orchestrator implements it.
type Pipeline interface {
	Handle(ctx context.Context, raw []byte) pipeline.Result
}

// Meta describes the running service on /health.
type Meta struct {
	Service        string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

const defaultMaxBody = 1 << 20

// Server wires HTTP endpoints around the signal pipeline.
type Server struct {
	Router   *gin.Engine
	Pipeline Pipeline
	Metrics  *monitor.Metrics
	Log      *zap.Logger
	Meta     Meta
}

// NewServer builds the router. metrics and log may be nil.
func NewServer(p Pipeline, metrics *monitor.Metrics, log *zap.Logger, meta Meta) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("api")
	if meta.RequestTimeout <= 0 {
		meta.RequestTimeout = 30 * time.Second
	}
	if meta.MaxBodyBytes <= 0 {
		meta.MaxBodyBytes = defaultMaxBody
	}

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(Recovery(log))
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(log, metrics))
	r.Use(TimeoutMiddleware(meta.RequestTimeout))

	s := &Server{
		Router:   r,
		Pipeline: p,
		Metrics:  metrics,
		Log:      log,
		Meta:     meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/debug/example-tradingview-payload", s.examplePayload)
	s.Router.POST("/webhook/tradingview", s.receiveSignal)
	s.Router.POST("/signals", s.receiveSignal)
	if s.Metrics != nil {
		s.Router.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.Meta.Service})
}

// HTTPServer returns an http.Server for addr serving this router.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
