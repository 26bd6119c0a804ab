package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/chassis"
)

const STALE_AFTER = time.Second

type Server struct {
	profile chassis.Profile
	live    *Live
	router  *gin.Engine
}

func New(profile chassis.Profile, live *Live) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{profile: profile, live: live, router: gin.New()}
	s.router.Use(gin.Recovery())
	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api/v1")
	{
		api.GET("/status", s.status)
		api.GET("/profile", s.getProfile)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		slog.Info("status api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "status api stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "could not shut down status api")
	}
}

func (s *Server) health(c *gin.Context) {
	_, updated := s.live.Snapshot()
	switch {
	case updated.IsZero():
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
	case time.Since(updated) > STALE_AFTER:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stale", "age_ms": time.Since(updated).Milliseconds()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) status(c *gin.Context) {
	state, updated := s.live.Snapshot()
	if updated.IsZero() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no control state yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":  state,
		"age_ms": time.Since(updated).Milliseconds(),
	})
}

func (s *Server) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, s.profile)
}
