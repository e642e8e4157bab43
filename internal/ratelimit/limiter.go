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

// Package ratelimit implements the per-service rate limiter: a collection
// of Rules, each backed by its own BucketCache of leaky Buckets
// (spec.md §4.2).
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"river/internal/config"
	"river/internal/telemetry"
)

// ErrRejected is returned by Admit when the admission timeout elapses
// before every matching rule's token is held. Per spec.md §4.2, any tokens
// already acquired are not returned.
var ErrRejected = errors.New("ratelimit: admission timeout elapsed")

// Limiter is the per-service rate limiter: an ordered list of Rules,
// acquired in declaration order to avoid lock-ordering hazards across
// requests (spec.md §4.2 "Tie-break and fairness").
type Limiter struct {
	rules   []*Rule
	timeout time.Duration
}

// New builds a Limiter from validated configuration.
func New(rc config.RateLimitingConfig) (*Limiter, error) {
	l := &Limiter{timeout: time.Duration(rc.TimeoutMillis) * time.Millisecond}
	for _, r := range rc.Rules {
		rule, err := NewRule(r)
		if err != nil {
			return nil, err
		}
		l.rules = append(l.rules, rule)
	}
	return l, nil
}

// Admit enumerates every rule in declaration order; for each whose
// predicate matches, it acquires one token from that rule's bucket. All
// required tokens must be held concurrently for the request to be
// admitted. The per-service admission timeout bounds the total wait;
// acquired tokens on a timed-out request are not released.
func (l *Limiter) Admit(ctx context.Context, peerIP, uriPath string) error {
	if len(l.rules) == 0 {
		return nil
	}

	deadlineCtx := ctx
	var cancel context.CancelFunc
	if l.timeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	} else {
		// timeout millis=0 means no wait at all: a token must be
		// immediately available (spec.md §8 scenario 2).
		var immediateCancel context.CancelFunc
		deadlineCtx, immediateCancel = context.WithTimeout(ctx, 0)
		defer immediateCancel()
	}

	for _, rule := range l.rules {
		key, matched := rule.Matches(peerIP, uriPath)
		if !matched {
			continue
		}
		bucket := rule.BucketFor(key)
		if !bucket.Acquire(deadlineCtx) {
			return ErrRejected
		}
	}
	return nil
}

// ReportCacheMetrics sets telemetry.BucketCacheEntries for every rule's
// resident bucket count, labeled by serviceName and the rule's
// declaration-order index. Called periodically by internal/service, not
// from the admission hot path, since Len() walks every shard.
func (l *Limiter) ReportCacheMetrics(serviceName string) {
	for i, rule := range l.rules {
		telemetry.BucketCacheEntries.WithLabelValues(serviceName, strconv.Itoa(i)).Set(float64(rule.cache.Len()))
	}
}
