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

// Package engine is the HTTP/TLS engine River's core plugs into. The
// wire-level concerns (TLS handshakes, HTTP/2 framing) are explicitly out
// of scope — this package is the net/http-based stand-in so the core
// (path-control, rate limiting, load balancing) is runnable end-to-end
// and its scenarios are testable. A production engine swap would replace
// this package alone; it consumes the core only through Backend.
package engine

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"river/internal/audit"
	"river/internal/loadbalance"
	"river/internal/pathcontrol"
	"river/internal/ratelimit"
	hotkeytelemetry "river/internal/ratelimit/telemetry"
	"river/internal/telemetry"
)

// Backend is what one Service hands the engine: either a proxy backend
// (Pipeline + Balancer) or a file-server backend, per spec.md §3's
// invariant that the two are mutually exclusive.
type Backend struct {
	ServiceName string
	Pipeline    *pathcontrol.Pipeline // nil for file-server backends
	Balancer    *loadbalance.LoadBalancer
	Limiter     *ratelimit.Limiter // nil if rate-limiting is not configured
	FileServer  http.Handler       // non-nil for file-server backends
	Audit       audit.Sink         // NopSink if unconfigured
	HotKeys     *hotkeytelemetry.Observer // nil if rate-limiting is not configured

	transport *http.Transport
}

// NewBackend wires a Backend, filling in a shared connection-pooling
// transport the way the engine's only persistent resource. hotKeys may be
// nil (file-server backends, or a proxy backend with no Limiter); when
// set, every admission decision on the hot path is folded into it via
// ObserveAdmission.
func NewBackend(name string, pipeline *pathcontrol.Pipeline, lb *loadbalance.LoadBalancer, limiter *ratelimit.Limiter, fileServer http.Handler, sink audit.Sink, hotKeys *hotkeytelemetry.Observer) *Backend {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Backend{
		ServiceName: name,
		Pipeline:    pipeline,
		Balancer:    lb,
		Limiter:     limiter,
		FileServer:  fileServer,
		Audit:       sink,
		HotKeys:     hotKeys,
		transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          256,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// ServeHTTP implements the data flow from spec.md §2:
// request-filter -> rate-limit admission -> peer selection ->
// upstream-request filter -> forward -> upstream-response filter -> forward downstream.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.FileServer != nil {
		b.FileServer.ServeHTTP(w, r)
		return
	}

	peerIP := peerIPOf(r)
	uriPath := r.URL.Path

	ex := &pathcontrol.Exchange{PeerIP: peerIP, URIPath: uriPath, Headers: r.Header}
	if b.Pipeline != nil {
		if outcome := b.Pipeline.RequestFilters.Run(r.Context(), ex); outcome.Rejected {
			telemetry.FilterRejectionsTotal.WithLabelValues(b.ServiceName, "request-filters", "block-cidr-range").Inc()
			b.recordAudit(r.Context(), audit.KindFilterRejected, "block-cidr-range", outcome.Status, peerIP, uriPath)
			http.Error(w, http.StatusText(outcome.Status), outcome.Status)
			return
		}
	}

	if b.Limiter != nil {
		// hotKeyOf is the same (peerIP, uriPath) pair Admit matches rules
		// against; the hot-key sampler folds it into its per-key churn
		// counter as a request-identifying key, not the per-rule bucket key.
		hotKey := hotKeyOf(peerIP, uriPath)
		if err := b.Limiter.Admit(r.Context(), peerIP, uriPath); err != nil {
			telemetry.AdmissionsTotal.WithLabelValues(b.ServiceName, "rejected").Inc()
			if b.HotKeys != nil {
				b.HotKeys.ObserveAdmission(hotKey, false)
			}
			b.recordAudit(r.Context(), audit.KindAdmissionRejected, "rate-limit", http.StatusTooManyRequests, peerIP, uriPath)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		telemetry.AdmissionsTotal.WithLabelValues(b.ServiceName, "admitted").Inc()
		if b.HotKeys != nil {
			b.HotKeys.ObserveAdmission(hotKey, true)
		}
	}

	conn, err := b.Balancer.Select(loadbalance.SelectCtx{SourceAddr: peerIP, UriPath: uriPath})
	if err != nil {
		telemetry.NoUpstreamTotal.WithLabelValues(b.ServiceName).Inc()
		b.recordAudit(r.Context(), audit.KindNoUpstream, "empty healthy set", http.StatusBadGateway, peerIP, uriPath)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	telemetry.SelectionsTotal.WithLabelValues(b.ServiceName, b.Balancer.PolicyName(), conn.Address).Inc()

	if b.Pipeline != nil {
		if outcome := b.Pipeline.UpstreamRequest.Run(r.Context(), ex); outcome.Rejected {
			http.Error(w, http.StatusText(outcome.Status), outcome.Status)
			return
		}
	}

	target := &url.URL{Scheme: "http", Host: conn.Address}
	if conn.TLSSNI != "" {
		target.Scheme = "https"
	}

	proxy := &httputil.ReverseProxy{
		Transport: b.transport,
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			if b.Pipeline != nil {
				respEx := &pathcontrol.Exchange{PeerIP: peerIP, URIPath: uriPath, Headers: resp.Header}
				if outcome := b.Pipeline.UpstreamResponse.Run(r.Context(), respEx); outcome.Rejected {
					resp.StatusCode = outcome.Status
				}
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			telemetry.UpstreamErrorsTotal.WithLabelValues(b.ServiceName, "502").Inc()
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
	proxy.ServeHTTP(w, r)
}

func (b *Backend) recordAudit(ctx context.Context, kind audit.Kind, reason string, status int, peerIP, uriPath string) {
	_ = b.Audit.Record(ctx, audit.Event{
		Service: b.ServiceName, Kind: kind, Reason: reason, Status: status,
		PeerIP: peerIP, URIPath: uriPath, Timestamp: time.Now(),
	})
}

func hotKeyOf(peerIP, uriPath string) string {
	return peerIP + " " + uriPath
}

func peerIPOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
