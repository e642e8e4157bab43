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

// Package telemetry provides opt-in, low-overhead observation of
// rate-limit admission per bucket key, to surface the highest-churn keys
// as candidates for a dedicated rule or a CIDR block. It is safe to call
// from the admission hot path: when disabled, ObserveAdmission is a
// single atomic load and return.
package telemetry

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"river/pkg/vsa"
)

// Config controls hot-key telemetry for one Limiter.
type Config struct {
	Enabled     bool
	SampleRate  float64       // 0.0..1.0, deterministic per key via FNV-1a
	LogInterval time.Duration // 0 disables the periodic top-N log
	TopN        int
	// OnTopN, if set, is invoked from the background loop every
	// LogInterval with the current top churn keys. Typically wired to a
	// *zap.Logger by the caller (internal/service).
	OnTopN func(top []KeyChurn)
}

// KeyChurn is one entry of an Observer.TopN result.
type KeyChurn struct {
	Key   string
	Count int64
}

var (
	admittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "river_ratelimit_admitted_total",
		Help: "Total rate-limit admissions observed by the hot-key sampler",
	})
	rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "river_ratelimit_rejected_total",
		Help: "Total rate-limit rejections observed by the hot-key sampler",
	})
)

func init() {
	prometheus.MustRegister(admittedTotal, rejectedTotal)
}

// Observer tracks per-key admission/rejection counts for one Limiter,
// using a vsa.VSA per key as a lock-free counter that a background loop
// periodically folds into the Top-N log.
type Observer struct {
	enabled   atomic.Bool
	threshold atomic.Uint64
	topN      int
	onTopN    func([]KeyChurn)

	mu    sync.Mutex
	byKey map[string]*vsa.VSA // key -> admit/reject net counter

	stopCh chan struct{}
}

// NewObserver builds an Observer from Config. The returned Observer is
// always safe to call; when cfg.Enabled is false every method is a no-op.
func NewObserver(cfg Config) *Observer {
	o := &Observer{byKey: make(map[string]*vsa.VSA), topN: cfg.TopN, onTopN: cfg.OnTopN}
	if o.topN <= 0 {
		o.topN = 50
	}
	o.threshold.Store(samplingThreshold(cfg.SampleRate))
	o.enabled.Store(cfg.Enabled)

	if cfg.Enabled && cfg.LogInterval > 0 && cfg.OnTopN != nil {
		o.stopCh = make(chan struct{})
		go o.logLoop(cfg.LogInterval)
	}
	return o
}

// ObserveAdmission records one admission outcome for key. Call on the hot
// path immediately after Limiter.Admit decides.
func (o *Observer) ObserveAdmission(key string, admitted bool) {
	if !o.enabled.Load() {
		return
	}
	if admitted {
		admittedTotal.Inc()
	} else {
		rejectedTotal.Inc()
	}
	if key == "" || !o.sampled(key) {
		return
	}
	o.mu.Lock()
	v, ok := o.byKey[key]
	if !ok {
		v = vsa.New(0)
		o.byKey[key] = v
	}
	o.mu.Unlock()
	if admitted {
		v.Update(1)
	} else {
		v.Update(-1)
	}
}

func (o *Observer) sampled(key string) bool {
	thr := o.threshold.Load()
	if thr == 0 {
		return false
	}
	return hashKey(key) <= thr
}

func samplingThreshold(rate float64) uint64 {
	if rate <= 0 {
		return 0
	}
	if rate >= 1 {
		return ^uint64(0)
	}
	max := ^uint64(0)
	f := rate * (float64(max) + 1.0)
	if f < 1 {
		f = 1
	}
	return uint64(f) - 1
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}

// TopN returns up to n keys with the highest absolute net churn observed
// so far, most-churned first.
func (o *Observer) TopN(n int) []KeyChurn {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]KeyChurn, 0, len(o.byKey))
	for k, v := range o.byKey {
		_, vector := v.State()
		if vector < 0 {
			vector = -vector
		}
		out = append(out, KeyChurn{Key: k, Count: vector})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (o *Observer) logLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			o.onTopN(o.TopN(o.topN))
		case <-o.stopCh:
			return
		}
	}
}

// Close stops the background log loop, if any.
func (o *Observer) Close() {
	if o.stopCh != nil {
		close(o.stopCh)
	}
}
