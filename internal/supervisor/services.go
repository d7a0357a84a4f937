// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/camsentry/camsentry/internal/logging"
)

// ServeFunc adapts a context-driven run function to a suture.Service.
type ServeFunc struct {
	Name string
	Run  func(ctx context.Context) error
}

func (s ServeFunc) Serve(ctx context.Context) error {
	return s.Run(ctx)
}

func (s ServeFunc) String() string {
	return s.Name
}

// HTTPService runs an http.Server under supervision with graceful
// shutdown on context cancellation.
type HTTPService struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
}

func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Server.ListenAndServe()
	}()

	logging.Info().Str("addr", s.Server.Addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server shutdown incomplete, closing")
		_ = s.Server.Close()
	}
	<-errCh
	return ctx.Err()
}

func (s *HTTPService) String() string {
	return "http-server"
}
