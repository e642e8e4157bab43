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

// Package service supervises the Services described in spec.md §4.4: the
// Listener set, the worker pool bounding concurrent pipeline execution,
// and the glue wiring path-control, rate-limiting, and load-balancing
// into one engine.Backend per Service.
package service

import "net/http"

// Pool bounds the number of requests a Service processes concurrently,
// the request-path realization of the "worker pool of configurable size
// (default 8)... a connection is pinned to one worker for its lifetime"
// model from spec.md §4.4: wire-level connection multiplexing is the
// engine's concern (spec.md §1), so Pool's role is to cap concurrent
// pipeline work per Service rather than to own goroutine-per-connection
// scheduling itself.
type Pool struct {
	sem chan struct{}
}

// DefaultPoolSize is the default worker-pool size named in spec.md §4.4.
const DefaultPoolSize = 8

// NewPool builds a Pool with the given size; size <= 0 falls back to
// DefaultPoolSize.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Wrap returns a handler that admits at most Pool's size requests into
// next concurrently, queuing the rest FIFO on the semaphore channel.
func (p *Pool) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case p.sem <- struct{}{}:
		case <-r.Context().Done():
			return
		}
		defer func() { <-p.sem }()
		next.ServeHTTP(w, r)
	})
}

// Size reports the configured worker-pool size.
func (p *Pool) Size() int { return cap(p.sem) }
