// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"river/internal/config"
	"river/internal/engine"
)

// Service owns a fixed set of Listeners, a worker Pool, and one
// engine.Backend, per spec.md §4.4. Its configuration is immutable for
// the Service's lifetime; reconfiguration means building a new Service
// via hot reload, never mutating this one.
type Service struct {
	Name      string
	Listeners []*Listener

	pool    *Pool
	backend *engine.Backend
	log     *zap.Logger

	servers []*http.Server
	wg      sync.WaitGroup

	metricsStop chan struct{}
}

// cacheMetricsInterval is how often a proxy Service with rate limiting
// reports its BucketCache residency to telemetry.BucketCacheEntries.
const cacheMetricsInterval = 15 * time.Second

// New builds a Service from its listeners and backend; listeners must
// already be bound (fresh or inherited via hot reload).
func New(name string, listeners []*Listener, poolSize int, backend *engine.Backend, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Name:      name,
		Listeners: listeners,
		pool:      NewPool(poolSize),
		backend:   backend,
		log:       log.With(zap.String("service", name)),
	}
}

// Start binds an http.Server to each Listener and begins accepting.
// Start returns once every listener's Serve goroutine has launched; any
// per-connection errors surface only via the logger, per spec.md §7's
// "fatal internal errors... terminate the Service; other Services
// continue" (a listener accept failure is local to this Service, not the
// whole process).
func (s *Service) Start() {
	handler := s.pool.Wrap(s.backend)
	for _, l := range s.Listeners {
		srv := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		s.servers = append(s.servers, srv)

		l := l
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
				s.log.Error("listener serve exited", zap.String("address", l.Config.Address), zap.Error(err))
			}
		}()
		s.log.Info("listener started", zap.String("address", l.Config.Address))
	}

	if s.backend.Limiter != nil {
		s.metricsStop = make(chan struct{})
		s.wg.Add(1)
		go s.reportCacheMetrics()
	}
}

// reportCacheMetrics periodically folds the backend's BucketCache
// residency into telemetry.BucketCacheEntries until Stop closes
// metricsStop.
func (s *Service) reportCacheMetrics() {
	defer s.wg.Done()
	t := time.NewTicker(cacheMetricsInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.backend.Limiter.ReportCacheMetrics(s.Name)
		case <-s.metricsStop:
			return
		}
	}
}

// Stop gracefully shuts down every listener's http.Server, bounded by the
// deadline carried in ctx (spec.md §4.5's "drain deadline"); on deadline
// expiry remaining connections are force-closed.
func (s *Service) Stop(ctx context.Context) error {
	if s.metricsStop != nil {
		close(s.metricsStop)
	}
	if s.backend.HotKeys != nil {
		s.backend.HotKeys.Close()
	}

	var firstErr error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			if closeErr := srv.Close(); closeErr != nil && firstErr == nil {
				firstErr = fmt.Errorf("service %s: force-close after shutdown error: %w", s.Name, closeErr)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("service %s: graceful shutdown: %w", s.Name, err)
			}
		}
	}
	s.wg.Wait()
	return firstErr
}

// ListenerConfigs reports the configured address for every Listener, used
// to build the hot-reload manifest (spec.md §4.5).
func (s *Service) ListenerConfigs() []config.ListenerConfig {
	out := make([]config.ListenerConfig, len(s.Listeners))
	for i, l := range s.Listeners {
		out[i] = l.Config
	}
	return out
}
