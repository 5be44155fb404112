// Package server provides HTTP server configuration and lifecycle management.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cksdxz1007/cloudflare-cert/internal/api/router"
	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

// Config holds the server configuration.
type Config struct {
	// Host is the address to bind to (default: "127.0.0.1").
	Host string

	// Port is the HTTP port.
	Port int

	// ConfigPath is the configuration file the status API reads.
	ConfigPath string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults. The status
// API binds to loopback: it exposes certificate locations and expiry
// and has no authentication.
func DefaultConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            8077,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Address returns the full listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server represents the HTTP status server.
type Server struct {
	cfg     *Config
	version string
	srv     *http.Server
}

// New creates a new Server.
func New(cfg *Config, version string) *Server {
	return &Server{
		cfg:     cfg,
		version: version,
	}
}

// Start loads the configuration, starts the HTTP server and blocks
// until SIGINT/SIGTERM or a listen error.
func (s *Server) Start() error {
	cfg, err := config.Load(s.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.cfg.ConfigPath, err)
	}

	handler := router.New(&router.Config{
		Version:    s.version,
		ConfigPath: s.cfg.ConfigPath,
		Cfg:        cfg,
	})

	s.srv = &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	logrus.WithFields(logrus.Fields{
		"address": s.cfg.Address(),
		"config":  s.cfg.ConfigPath,
	}).Info("status server listening")

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logrus.Infof("received signal %v, shutting down", sig)
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logrus.Info("server stopped gracefully")
	return nil
}
