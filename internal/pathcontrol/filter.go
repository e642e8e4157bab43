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

// Package pathcontrol implements the three-stage path-control pipeline:
// request-filters (reject-only), upstream-request (mutating), and
// upstream-response (mutating). Each stage is its own Chain built once at
// Service construction and shared, read-only, by every request afterward.
package pathcontrol

import (
	"context"
	"net/http"
)

// Header is an alias of http.Header so filters operate directly on the
// header maps the engine already parses, without a translation layer.
type Header = http.Header

// Outcome is the result of applying one filter or an entire Chain.
type Outcome struct {
	Rejected bool
	Status   int // valid only when Rejected
}

var proceed = Outcome{}

// Reject builds a rejecting Outcome with the given HTTP status.
func Reject(status int) Outcome { return Outcome{Rejected: true, Status: status} }

// Exchange is the mutable view a filter acts on. Which fields are
// meaningful depends on the stage: request-filters only read PeerIP and
// Headers (and must not mutate them, per spec.md §4.1); upstream-request
// and upstream-response filters may mutate Headers.
type Exchange struct {
	PeerIP  string
	URIPath string
	Headers Header
}

// Filter is one node in a Chain.
type Filter interface {
	// Apply runs the filter against ex. A reject outcome must be returned
	// without mutating ex; a proceed outcome may come with or without
	// mutation, depending on the filter kind.
	Apply(ctx context.Context, ex *Exchange) Outcome
}

// Chain is an ordered, immutable list of Filters. Filters execute in
// declared order; a rejecting filter short-circuits the remaining chain.
type Chain struct {
	filters []Filter
}

// Run applies every filter in order. It stops at the first rejection.
func (c *Chain) Run(ctx context.Context, ex *Exchange) Outcome {
	for _, f := range c.filters {
		if out := f.Apply(ctx, ex); out.Rejected {
			return out
		}
	}
	return proceed
}

// Len reports the number of filters in the chain, mostly useful for tests.
func (c *Chain) Len() int { return len(c.filters) }
