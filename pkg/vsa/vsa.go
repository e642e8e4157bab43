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

// Package vsa provides a lock-free, striped delta counter for River's
// hot-key churn sampler (internal/ratelimit/telemetry): every admission
// or rejection of a sampled bucket key is folded into a VSA via Update
// on the request hot path, and the background Top-N loop reads the net
// churn back out via State; neither Update nor State takes a lock.
//
// This is a narrowed descendant of the Vector-Scalar Accumulator
// pattern: a stable scalar base plus a volatile, striped in-memory
// vector. River's churn sampler never needs to gate a budget or report
// a delta to an external sink, so it keeps only the two operations that
// matter for counting — Update and State — and drops the
// consume/refund/commit machinery a budget-enforcing accumulator would
// need.
package vsa

import (
	"sync/atomic"
)

// padSize over-pads each stripe to avoid false sharing between cores;
// cache line size varies, so this deliberately overshoots 64 bytes.
const padSize = 128 - 8 // atomic.Int64 is 8 bytes; remainder to reach >=128

type stripe struct {
	val atomic.Int64
	_   [padSize]byte
}

// stripeCount is fixed rather than GOMAXPROCS-derived: the churn sampler
// holds one VSA per sampled key and a per-process CPU-count stripe
// count would multiply memory by key count for no contention benefit at
// the sampling rates telemetry.Config expects.
const stripeCount = 16
const stripeMask = stripeCount - 1

// VSA is a thread-safe net-delta counter: a fixed scalar recorded at
// construction plus a striped, lock-free vector that Update mutates and
// State reads back.
type VSA struct {
	scalar atomic.Int64

	stripes [stripeCount]stripe
	chooser atomic.Uint64
}

// New creates a VSA with the given scalar baseline. The churn sampler
// always passes 0: the baseline isn't meaningful for a churn count, only
// the net vector is.
func New(initialScalar int64) *VSA {
	v := &VSA{}
	v.scalar.Store(initialScalar)
	return v
}

// Update applies a delta to the in-memory vector without touching the
// scalar: a lock-free atomic add on a round-robin-chosen stripe, safe to
// call from the admission hot path.
func (v *VSA) Update(delta int64) {
	idx := int(v.chooser.Add(1)) & stripeMask
	v.stripes[idx].val.Add(delta)
}

// State returns the constructed scalar and the current effective vector
// (the sum of all stripes).
func (v *VSA) State() (scalar, vector int64) {
	return v.scalar.Load(), v.currentVector()
}

func (v *VSA) currentVector() int64 {
	var sum int64
	for i := range v.stripes {
		sum += v.stripes[i].val.Load()
	}
	return sum
}
