// Package supervisor runs long-lived services with a shared start/run/stop
// lifecycle.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Service is a long-running unit managed by the Supervisor.
type Service interface {
	// Name identifies the service in logs and errors.
	Name() string

	// Start acquires resources such as bound sockets. It must not block.
	Start(ctx context.Context) error

	// Run serves until Stop is called or a fatal error occurs.
	Run(ctx context.Context) error

	// Stop releases the resources acquired by Start and unblocks Run.
	// It does not wait for in-flight work.
	Stop(ctx context.Context) error
}

// Supervisor sequences the lifecycle of a set of services.
type Supervisor struct {
	logger hclog.Logger
}

// New creates a Supervisor.
func New(logger hclog.Logger) *Supervisor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Supervisor{logger: logger}
}

// Run starts every service in order, runs each one on its own goroutine and
// blocks until ctx is cancelled or a service's Run fails. All services are
// then stopped. Cancellation is a clean shutdown and returns nil.
func (s *Supervisor) Run(ctx context.Context, services ...Service) error {
	started := make([]Service, 0, len(services))
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			s.logger.Error("failed to start service", "service", svc.Name(), "error", err)
			stopErr := s.stopAll(started)
			return errors.Join(fmt.Errorf("start %s: %w", svc.Name(), err), stopErr)
		}
		s.logger.Debug("service started", "service", svc.Name())
		started = append(started, svc)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, len(started))
	var wg sync.WaitGroup
	for _, svc := range started {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			if err := svc.Run(runCtx); err != nil && runCtx.Err() == nil {
				errChan <- fmt.Errorf("%s: %w", svc.Name(), err)
			}
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("received shutdown signal")
	case runErr = <-errChan:
		s.logger.Error("service failed", "error", runErr)
	}

	cancel()
	stopErr := s.stopAll(started)
	wg.Wait()

	return errors.Join(runErr, stopErr)
}

// stopAll stops services in reverse start order. Every service is stopped
// even when an earlier Stop fails.
func (s *Supervisor) stopAll(services []Service) error {
	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.Stop(context.Background()); err != nil {
			s.logger.Warn("error stopping service", "service", svc.Name(), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
			continue
		}
		s.logger.Info("stopped", "service", svc.Name())
	}
	return errors.Join(errs...)
}
