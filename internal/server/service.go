package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Service runs an http.Handler on a TCP address under the supervisor
// lifecycle. net/http serves every request on its own goroutine.
type Service struct {
	name    string
	addr    string
	handler http.Handler
	logger  hclog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	stopped  bool
}

// NewService creates a service named name serving handler on addr.
func NewService(name, addr string, handler http.Handler, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		name:    name,
		addr:    addr,
		handler: handler,
		logger:  logger,
	}
}

// Name implements supervisor.Service.
func (s *Service) Name() string {
	return s.name
}

// Start binds the TCP listener.
func (s *Service) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind %s listener %s: %w", s.name, s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.stopped = false
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
	s.mu.Unlock()

	s.logger.Debug("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until Stop.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.mu.Unlock()
	if srv == nil {
		return fmt.Errorf("%s service not started", s.name)
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the listener and all open connections without waiting for
// in-flight requests.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil || s.stopped {
		return nil
	}
	s.stopped = true
	err := s.server.Close()
	// Close does not know the listener if Serve has not been entered yet.
	_ = s.listener.Close()
	return err
}
