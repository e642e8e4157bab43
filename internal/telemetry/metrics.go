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

// Package telemetry registers the process-wide Prometheus metrics for
// admission outcomes, filter rejections, load-balancer selection, and the
// no-upstream warning counter from spec.md §7. Metrics carry a "service"
// label, never a per-key or per-bucket label, to avoid unbounded
// cardinality — the per-key churn/hot-key view lives separately in
// internal/ratelimit/telemetry, sampled and opt-in.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_admissions_total",
		Help: "Total admission decisions by rate limiter, by service and outcome",
	}, []string{"service", "outcome"}) // outcome: admitted | rejected

	FilterRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_filter_rejections_total",
		Help: "Total path-control filter rejections, by service, stage, and filter kind",
	}, []string{"service", "stage", "kind"})

	NoUpstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_no_upstream_total",
		Help: "Total no-upstream warnings (empty healthy set at peer selection), by service",
	}, []string{"service"})

	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_lb_selections_total",
		Help: "Total load-balancer selections, by service, policy, and chosen connector",
	}, []string{"service", "policy", "connector"})

	BucketCacheEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "river_bucket_cache_entries",
		Help: "Resident bucket-cache entries, by service and rule index",
	}, []string{"service", "rule"})

	UpstreamErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_upstream_errors_total",
		Help: "Upstream transport errors surfaced to downstream, by service and status",
	}, []string{"service", "status"})
)

func init() {
	prometheus.MustRegister(
		AdmissionsTotal,
		FilterRejectionsTotal,
		NoUpstreamTotal,
		SelectionsTotal,
		BucketCacheEntries,
		UpstreamErrorsTotal,
	)
}

// Serve exposes /metrics on addr in a background goroutine, mirroring the
// teacher's churn.startMetricsEndpoint.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
