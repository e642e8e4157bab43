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

package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Bucket is a single leaky bucket: capacity tokens, lazily refilled, with a
// FIFO queue of waiters per spec.md §4.2/§5. All mutation (token count,
// waiter queue) is serialized by mu, a per-bucket mutex — "per-bucket
// mutation ... is serialised by a per-bucket mutex" (spec.md §5).
type Bucket struct {
	mu sync.Mutex

	capacity     int64
	tokens       int64
	refillQty    int64
	refillPeriod time.Duration
	lastRefill   time.Time

	waiters     *list.List // of *waiter, strictly FIFO
	timerArmed  bool       // true while a refill timer is scheduled to wake queued waiters
}

type waiter struct {
	ch        chan struct{}
	cancelled bool
}

// NewBucket creates a bucket initialised full, per spec.md §4.2.
func NewBucket(capacity, refillQty int64, refillPeriod time.Duration) *Bucket {
	return &Bucket{
		capacity:     capacity,
		tokens:       capacity,
		refillQty:    refillQty,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
		waiters:      list.New(),
	}
}

// refillLocked applies lazy refill: elapsed whole refill-periods since
// lastRefill add refillQty*elapsed tokens, capped at capacity; lastRefill
// advances by exactly the whole periods consumed. Caller holds mu.
func (b *Bucket) refillLocked(now time.Time) {
	if b.refillPeriod <= 0 {
		return
	}
	elapsed := now.Sub(b.lastRefill)
	periods := int64(elapsed / b.refillPeriod)
	if periods <= 0 {
		return
	}
	b.tokens += periods * b.refillQty
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(periods) * b.refillPeriod)
}

// wakeLocked grants tokens to waiters at the head of the FIFO queue as long
// as tokens are available. Caller holds mu.
func (b *Bucket) wakeLocked() {
	for b.tokens > 0 {
		front := b.waiters.Front()
		if front == nil {
			return
		}
		w := front.Value.(*waiter)
		b.waiters.Remove(front)
		if w.cancelled {
			continue
		}
		b.tokens--
		close(w.ch)
	}
}

// Acquire blocks until one token is held or ctx is done. On ctx
// cancellation/deadline, the caller's place in the waiter queue is removed
// (if still queued) and no token is granted; per spec.md §4.2/§5, a token
// already granted before cancellation is never returned. HasWaiters
// reflects the queue depth for the ARC eviction guard.
func (b *Bucket) Acquire(ctx context.Context) bool {
	b.mu.Lock()
	b.refillLocked(time.Now())
	b.wakeLocked() // serve any already-queued waiters before considering a fresh caller

	if b.waiters.Len() == 0 && b.tokens > 0 {
		b.tokens--
		b.mu.Unlock()
		return true
	}

	w := &waiter{ch: make(chan struct{})}
	el := b.waiters.PushBack(w)
	b.armRefillTimerLocked()
	b.mu.Unlock()

	select {
	case <-w.ch:
		return true
	case <-ctx.Done():
		b.mu.Lock()
		select {
		case <-w.ch:
			// Granted in the race between ctx.Done() and wake; honor the grant.
			b.mu.Unlock()
			return true
		default:
			w.cancelled = true
			b.waiters.Remove(el)
			b.mu.Unlock()
			return false
		}
	}
}

// armRefillTimerLocked schedules a one-shot timer to fire at the next
// instant a refill would add a token, so FIFO waiters are woken even when
// no further request arrives to trigger the lazy refill path. Caller holds
// mu. At most one timer is ever outstanding per bucket.
func (b *Bucket) armRefillTimerLocked() {
	if b.timerArmed || b.refillPeriod <= 0 {
		return
	}
	b.timerArmed = true
	delay := time.Until(b.lastRefill.Add(b.refillPeriod))
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, b.onRefillTimer)
}

func (b *Bucket) onRefillTimer() {
	b.mu.Lock()
	b.timerArmed = false
	b.refillLocked(time.Now())
	b.wakeLocked()
	if b.waiters.Len() > 0 {
		b.armRefillTimerLocked()
	}
	b.mu.Unlock()
}

// HasWaiters reports whether any request is currently queued for a token,
// satisfying arc.Evictable so the ARC cache never evicts a bucket with
// active waiters (spec.md §4.2).
func (b *Bucket) HasWaiters() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiters.Len() > 0
}

// Tokens returns the current token count after applying lazy refill, for
// tests and observability.
func (b *Bucket) Tokens() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(time.Now())
	return b.tokens
}
