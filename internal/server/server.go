// Package server exposes the watch document, scan results and dashboard
// views as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StockSentinel/internal/dashboard"
	"StockSentinel/internal/model"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/store"
	"StockSentinel/internal/symbol"
)

// Scans triggers scans and serves the latest result.
type Scans interface {
	ScanNow(ctx context.Context, notify bool) *model.ScanResult
	LastScan() *model.ScanResult
}

// Directory resolves codes for search and bulk import.
type Directory interface {
	Search(ctx context.Context, query string, limit int) []symbol.Listing
	Lookup(ctx context.Context) map[string]model.Ticker
}

// Server holds the API dependencies. Directory and Recorder may be nil.
type Server struct {
	Store     *store.Store
	Scans     Scans
	Board     *dashboard.Board
	Directory Directory
	Recorder  recorder.Recorder

	httpServer *http.Server
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/scan/latest", s.getLatestScan)
		api.POST("/scan", s.postScan)
		api.GET("/scans", s.getScanHistory)
		api.GET("/alerts", s.getAlertHistory)

		api.GET("/watchlist", s.getWatchTable)
		api.PUT("/watchlist/:ticker", s.putWatch)
		api.DELETE("/watchlist/:ticker", s.deleteWatch)
		api.POST("/watchlist/import", s.importWatch)

		api.GET("/holdings", s.getHoldings)
		api.PUT("/holdings/:ticker", s.putHolding)
		api.DELETE("/holdings/:ticker", s.deleteHolding)

		api.GET("/thresholds", s.getThresholds)
		api.PUT("/thresholds", s.putThresholds)

		api.GET("/market", s.getMarket)
		api.GET("/sectors", s.getSectors)
		api.GET("/symbols", s.searchSymbols)
	}
	return r
}

// Start serves on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	zap.L().Info("http server listening", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			zap.L().Error("http request", fields...)
			return
		}
		zap.L().Debug("http request", fields...)
	}
}

func abortError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrInvalidTicker):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func tickerParam(c *gin.Context) model.Ticker {
	return model.Ticker(strings.ToUpper(strings.TrimSpace(c.Param("ticker"))))
}

func limitQuery(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}

func (s *Server) getLatestScan(c *gin.Context) {
	res := s.Scans.LastScan()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) postScan(c *gin.Context) {
	notify := c.Query("notify") == "true"
	c.JSON(http.StatusOK, s.Scans.ScanNow(c.Request.Context(), notify))
}

func (s *Server) getScanHistory(c *gin.Context) {
	if s.Recorder == nil {
		c.JSON(http.StatusOK, gin.H{"scans": []recorder.ScanSummary{}})
		return
	}
	scans, err := s.Recorder.RecentScans(c.Request.Context(), limitQuery(c, 50))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans})
}

func (s *Server) getAlertHistory(c *gin.Context) {
	if s.Recorder == nil {
		c.JSON(http.StatusOK, gin.H{"alerts": []recorder.AlertRecord{}})
		return
	}
	alerts, err := s.Recorder.RecentAlerts(c.Request.Context(), limitQuery(c, 100))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) getWatchTable(c *gin.Context) {
	rows := s.Board.WatchTable(c.Request.Context(), s.Store.Snapshot(), s.Scans.LastScan())
	c.JSON(http.StatusOK, gin.H{"watch_list": rows})
}

type watchRequest struct {
	Strategy string `json:"strategy"`
}

func (s *Server) putWatch(c *gin.Context) {
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := tickerParam(c)
	if err := s.Store.AddWatch(t, model.ParseStrategy(req.Strategy)); err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": t, "entry": s.Store.Snapshot().WatchList[t]})
}

func (s *Server) deleteWatch(c *gin.Context) {
	if err := s.Store.RemoveWatch(tickerParam(c)); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type importRequest struct {
	Codes    string `json:"codes" binding:"required"`
	Strategy string `json:"strategy"`
}

func (s *Server) importWatch(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.Directory == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "symbol directory not configured"})
		return
	}
	n, err := s.Store.BulkImport(req.Codes, model.ParseStrategy(req.Strategy), s.Directory.Lookup(c.Request.Context()))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (s *Server) getHoldings(c *gin.Context) {
	rows := s.Board.Holdings(c.Request.Context(), s.Store.Snapshot())
	if rows == nil {
		rows = []dashboard.HoldingRow{}
	}
	c.JSON(http.StatusOK, gin.H{"holdings": rows})
}

// holdingRequest fields left out keep their current (or default) values.
type holdingRequest struct {
	Cost         *float64 `json:"cost"`
	ProfitTarget *float64 `json:"profit_target"`
	LossLimit    *float64 `json:"loss_limit"`
	Support      *float64 `json:"support"`
}

func (s *Server) putHolding(c *gin.Context) {
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := tickerParam(c)
	h, ok := s.Store.Snapshot().HoldingList[t]
	if !ok {
		h = model.DefaultHolding()
	}
	for dst, src := range map[*float64]*float64{
		&h.Cost: req.Cost, &h.ProfitTarget: req.ProfitTarget, &h.LossLimit: req.LossLimit, &h.Support: req.Support,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if err := s.Store.UpdateHolding(t, h); err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": t, "entry": h})
}

func (s *Server) deleteHolding(c *gin.Context) {
	if err := s.Store.RemoveHolding(tickerParam(c)); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.Snapshot().Thresholds)
}

func (s *Server) putThresholds(c *gin.Context) {
	th := s.Store.Snapshot().Thresholds
	if err := c.ShouldBindJSON(&th); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if th.Short <= 0 || th.Band >= 0 || th.Market >= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "short must be positive, band and market negative"})
		return
	}
	if err := s.Store.SetThresholds(th); err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, th)
}

func (s *Server) getMarket(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"indexes": s.Board.Market(c.Request.Context())})
}

func (s *Server) getSectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sectors": s.Board.SectorBoard(c.Request.Context())})
}

func (s *Server) searchSymbols(c *gin.Context) {
	if s.Directory == nil {
		c.JSON(http.StatusOK, gin.H{"symbols": []symbol.Listing{}})
		return
	}
	out := s.Directory.Search(c.Request.Context(), c.Query("q"), limitQuery(c, 20))
	if out == nil {
		out = []symbol.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"symbols": out})
}
