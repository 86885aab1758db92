package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
)

const (
	heartbeatInterval = 30 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// runner is a long-lived consumer loop.
type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Consumer runner
	// Server serves the push endpoint and health routes; optional.
	Server *http.Server
	Checks map[string]db.Pinger
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	consumer runner
	server   *http.Server
	checks   map[string]db.Pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("message consumer is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		consumer: params.Consumer,
		server:   params.Server,
		checks:   params.Checks,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pinger := s.checks[name]
		if pinger == nil {
			continue
		}
		if err := pingDependency(ctx, s.logg, name, pinger.Ping); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	errCh := make(chan error, 2)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()
	if s.server != nil {
		go func() {
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("push server: %w", err)
			}
		}()
		defer s.shutdownServer(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			s.logg.Debug(ctx, "worker.heartbeat")
		}
	}
}

func (s *Service) shutdownServer(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logg.Error(ctx, "push server shutdown failed", err)
	}
}
