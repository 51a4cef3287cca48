// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nightjar-io/nightjar/internal/store"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address            string
	JWTSecret          []byte // empty disables auth
	HTTPTLSEnabled     bool   // Enable HTTPS for API server
	HTTPTLSCertFile    string // HTTPS certificate file
	HTTPTLSKeyFile     string // HTTPS private key file
	RateLimitPerTenant int    // Requests per second per tenant
	RateLimitBurst     int
	QueryTimeout       time.Duration // Timeout for store-backed API calls
	Verbose            bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerTenant == 0 {
		c.RateLimitPerTenant = 100 // 100 requests per second
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 200
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config *Config
	alerts *store.Store
	server *http.Server
}

// New creates a new API server.
func New(cfg *Config, alerts *store.Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alert store is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config: cfg,
		alerts: alerts,
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		var err error
		if s.config.HTTPTLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.HTTPTLSCertFile, s.config.HTTPTLSKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
