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
	"os"
	"time"

	"go.uber.org/zap"

	"river/internal/audit"
	"river/internal/config"
	"river/internal/engine"
	"river/internal/fileserver"
	"river/internal/loadbalance"
	"river/internal/pathcontrol"
	"river/internal/ratelimit"
	hotkeytelemetry "river/internal/ratelimit/telemetry"
)

// Supervisor owns every Service built from one validated config.Document
// (spec.md §2: "the running process hosts N independent Services").
type Supervisor struct {
	Services map[string]*Service
	log      *zap.Logger
}

// InheritedFile is a hot-reload-inherited file descriptor for one
// configured listener address, keyed by address (see internal/hotreload).
type InheritedFile struct {
	Address string
	File    *os.File
}

// Build constructs every Service named in doc. inherited supplies any
// listener file descriptors received over the hot-reload handoff
// channel, keyed by listener address; a Listener not present in
// inherited is bound fresh.
func Build(doc *config.Document, log *zap.Logger, sink audit.Sink, inherited map[string]*os.File) (*Supervisor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = audit.NopSink{}
	}

	sup := &Supervisor{Services: make(map[string]*Service), log: log}
	for name, sc := range doc.Services {
		svc, err := buildService(name, sc, doc.System.ThreadsPerService, log, sink, inherited)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		sup.Services[name] = svc
	}
	return sup, nil
}

func buildService(name string, sc config.ServiceConfig, poolSize int, log *zap.Logger, sink audit.Sink, inherited map[string]*os.File) (*Service, error) {
	listeners := make([]*Listener, 0, len(sc.Listeners))
	for _, lc := range sc.Listeners {
		var (
			l   *Listener
			err error
		)
		if f, ok := inherited[lc.Address]; ok {
			l, err = NewListenerFromFile(lc, f)
		} else {
			l, err = NewListener(lc)
		}
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, l)
	}

	var backend *engine.Backend
	switch {
	case sc.FileServer != nil:
		fs := fileserver.New(sc.FileServer.BasePath)
		backend = engine.NewBackend(name, nil, nil, nil, fs, sink, nil)
	case sc.Proxy != nil:
		pipeline, err := pathcontrol.NewPipeline(sc.Proxy.PathControl)
		if err != nil {
			return nil, err
		}
		lb, err := loadbalance.New(sc.Proxy.LoadBalance, sc.Proxy.Connectors)
		if err != nil {
			return nil, err
		}
		var limiter *ratelimit.Limiter
		var hotKeys *hotkeytelemetry.Observer
		if len(sc.Proxy.RateLimiting.Rules) > 0 {
			limiter, err = ratelimit.New(sc.Proxy.RateLimiting)
			if err != nil {
				return nil, err
			}
			svcLog := log.With(zap.String("service", name))
			hotKeys = hotkeytelemetry.NewObserver(hotkeytelemetry.Config{
				Enabled:     true,
				SampleRate:  0.1,
				LogInterval: time.Minute,
				TopN:        10,
				OnTopN: func(top []hotkeytelemetry.KeyChurn) {
					if len(top) == 0 {
						return
					}
					fields := make([]zap.Field, 0, len(top))
					for i, kc := range top {
						if i >= 5 {
							break
						}
						fields = append(fields, zap.Int64(kc.Key, kc.Count))
					}
					svcLog.Info("hot-key churn sample", fields...)
				},
			})
		}
		backend = engine.NewBackend(name, pipeline, lb, limiter, nil, sink, hotKeys)
	default:
		return nil, fmt.Errorf("service has neither a proxy nor a file-server backend")
	}

	return New(name, listeners, poolSize, backend, log), nil
}

// Start launches every Service's listeners.
func (s *Supervisor) Start() {
	for _, svc := range s.Services {
		svc.Start()
	}
}

// Shutdown gracefully stops every Service, bounded by ctx's deadline
// (spec.md §4.5's drain deadline; spec.md §6's SIGTERM handling).
func (s *Supervisor) Shutdown(ctx context.Context) error {
	var firstErr error
	for name, svc := range s.Services {
		if err := svc.Stop(ctx); err != nil {
			s.log.Error("service shutdown error", zap.String("service", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ListenerFiles returns every Service's listener file descriptors, keyed
// by configured address, for the hot-reload handoff (spec.md §4.5).
func (s *Supervisor) ListenerFiles() (map[string]*os.File, error) {
	out := make(map[string]*os.File)
	for _, svc := range s.Services {
		for _, l := range svc.Listeners {
			f, err := l.File()
			if err != nil {
				return nil, fmt.Errorf("listener %s: %w", l.Config.Address, err)
			}
			out[l.Config.Address] = f
		}
	}
	return out, nil
}
