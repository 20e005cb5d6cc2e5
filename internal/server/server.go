// Package server exposes the persisted JSON documents over a read-only HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/recorder"
	"SectorSentinel/internal/store"
)

// Server serves the data directory.
type Server struct {
	Store    *store.Store
	Recorder recorder.Recorder
	Log      logrus.FieldLogger
	engine   *gin.Engine
}

// New creates a server with its routes registered.
func New(st *store.Store, rec recorder.Recorder, log logrus.FieldLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		Store:    st,
		Recorder: rec,
		Log:      log,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/data", s.listFiles)
	s.engine.GET("/api/data/:file", s.getFile)
	s.engine.GET("/api/runs", s.getRuns)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.Log.WithField("addr", addr).Info("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
			"ip":       c.ClientIP(),
		}).Debug("HTTP request")
	}
}

func (s *Server) jsonFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Store.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Server) listFiles(c *gin.Context) {
	files, err := s.jsonFiles()
	if err != nil {
		s.Log.WithError(err).Error("list data dir")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot list data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) getFile(c *gin.Context) {
	name := c.Param("file")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	data, err := os.ReadFile(filepath.Join(s.Store.Dir, name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) getHealth(c *gin.Context) {
	dates, err := s.Store.DailyDates()
	latest := ""
	if err == nil && len(dates) > 0 {
		latest = dates[len(dates)-1]
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"latest_daily": latest,
		"baseline":     store.Exists(s.Store.BaselinePath()),
		"ltm_high":     store.Exists(s.Store.TrailingHighPath()),
	})
}

type runJSON struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Skipped    bool      `json:"skipped"`
	Resolved   int       `json:"resolved"`
	Missing    int       `json:"missing"`
}

func (s *Server) getRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	runs, err := s.Recorder.RecentRuns(limit)
	if err != nil {
		s.Log.WithError(err).Error("list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot list runs"})
		return
	}
	out := make([]runJSON, len(runs))
	for i, r := range runs {
		out[i] = runJSON{
			ID: r.ID, Kind: string(r.Kind), Target: r.Target,
			StartedAt: r.StartedAt, FinishedAt: r.FinishedAt,
			Skipped: r.Skipped, Resolved: r.Resolved, Missing: r.Missing,
		}
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}
