package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server exposes health, metrics and recent runs while pipelines are
// scheduled.
type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

func NewRouter(metrics http.Handler, runs *RunLog, pipelines []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	started := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "pipecli",
			"uptime":    time.Since(started).Round(time.Second).String(),
			"pipelines": pipelines,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics))
	r.GET("/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, runs.Recent(c.Query("pipeline")))
	})
	r.GET("/runs/:pipeline", func(c *gin.Context) {
		name := c.Param("pipeline")
		if !contains(pipelines, name) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown pipeline " + name})
			return
		}
		c.JSON(http.StatusOK, runs.Recent(name))
	})
	return r
}

func New(addr string, handler http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("status server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdown)
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
