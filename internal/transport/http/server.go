// Package http exposes the optimization service over a small REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"backtune/internal/feed"
	"backtune/internal/params"
	"backtune/internal/report"
	"backtune/internal/service"
	"backtune/internal/store"
	"backtune/internal/timeframe"

	"github.com/gin-gonic/gin"
)

// Server wires the gin router over the service and stores.
type Server struct {
	addr    string
	svc     *service.Service
	results *store.ResultStore
	candles *feed.Store
	router  *gin.Engine
}

type Config struct {
	Addr    string
	Svc     *service.Service
	Results *store.ResultStore
	Candles *feed.Store
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Svc == nil || cfg.Results == nil || cfg.Candles == nil {
		return nil, errors.New("http server needs service, result store and candle store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.Addr,
		svc:     cfg.Svc,
		results: cfg.Results,
		candles: cfg.Candles,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/spaces", s.handleSpaces)

	opt := api.Group("/optimize")
	opt.POST("", s.handleSubmit)
	opt.GET("", s.handleJobs)
	opt.GET("/:id", s.handleJob)
	opt.GET("/:id/results", s.handleResults)
	opt.GET("/:id/report", s.handleReport)

	data := api.Group("/data")
	data.POST("/sync", s.handleSync)
	data.GET("/coverage", s.handleCoverage)
	data.GET("/candles", s.handleCandles)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSpaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"spaces": s.svc.SpaceNames()})
}

// submitPayload mirrors service.OptimizeRequest but keeps the space raw so
// it can go through schema validation before decoding.
type submitPayload struct {
	Symbol     string          `json:"symbol" binding:"required"`
	Interval   string          `json:"interval"`
	Strategy   string          `json:"strategy" binding:"required"`
	Mode       string          `json:"mode"`
	Space      json.RawMessage `json:"space"`
	SpaceName  string          `json:"space_name"`
	Score      string          `json:"score"`
	Period     string          `json:"period"`
	Validation string          `json:"validation"`
	Samples    int             `json:"samples"`
	Anchored   bool            `json:"anchored"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var payload submitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req := service.OptimizeRequest{
		Symbol:     payload.Symbol,
		Interval:   payload.Interval,
		Strategy:   payload.Strategy,
		Mode:       payload.Mode,
		SpaceName:  payload.SpaceName,
		Score:      payload.Score,
		Period:     payload.Period,
		Validation: payload.Validation,
		Samples:    payload.Samples,
		Anchored:   payload.Anchored,
	}
	if len(payload.Space) > 0 {
		def, err := params.ParseSpaceJSON(payload.Space)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Space = def
	} else if payload.SpaceName == "" {
		req.Space = params.SpaceDef{Type: "empty"}
	}
	job, err := s.svc.SubmitOptimize(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := s.results.Jobs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleJob(c *gin.Context) {
	job, err := s.results.Job(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleResults(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.results.Job(c.Request.Context(), id); errors.Is(err, store.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	results, err := s.results.Results(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleReport(c *gin.Context) {
	id := c.Param("id")
	job, err := s.results.Job(c.Request.Context(), id)
	if errors.Is(err, store.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log, ok := s.svc.MetricLog(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no in-memory curves for this job; it ran in another process"})
		return
	}
	results, err := s.results.Results(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	html, err := report.BuildHTML(report.JobReportInput{
		JobID:   id,
		Title:   fmt.Sprintf("%s %s %s", job.Symbol, job.Strategy, job.Mode),
		Log:     log,
		Results: results,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *Server) handleSync(c *gin.Context) {
	var req struct {
		Symbol   string `json:"symbol" binding:"required"`
		Interval string `json:"interval"`
		StartTS  int64  `json:"start_ts" binding:"required"`
		EndTS    int64  `json:"end_ts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := s.svc.SyncCandles(c.Request.Context(), req.Symbol, req.Interval, req.StartTS, req.EndTS)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "synced": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": n})
}

func (s *Server) handleCoverage(c *gin.Context) {
	cov, err := s.candles.Coverage(c.Request.Context(), c.Query("symbol"), c.Query("interval"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cov)
}

func (s *Server) handleCandles(c *gin.Context) {
	start, _ := strconv.ParseInt(c.Query("start_ts"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_ts"), 10, 64)
	tf, err := timeframe.New(time.UnixMilli(start).UTC(), time.UnixMilli(end).UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candles, err := s.candles.Query(c.Request.Context(), c.Query("symbol"), c.Query("interval"), tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candles": candles})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
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
func (s *Server) Handler() http.Handler { return s.router }
