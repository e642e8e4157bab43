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

package loadbalance

import (
	"fmt"

	"river/internal/config"
)

// LoadBalancer is one per proxy Service: it owns the mutable set of
// Connectors plus the selection/discovery/health-check policy triple
// (spec.md §3/§4.3).
type LoadBalancer struct {
	discovery Discovery
	health    HealthChecker
	policy    Policy
}

// New builds a LoadBalancer from validated configuration.
func New(lbc config.LoadBalanceConfig, connectorConfigs []config.ConnectorConfig) (*LoadBalancer, error) {
	connectors := make([]*Connector, len(connectorConfigs))
	for i, cc := range connectorConfigs {
		connectors[i] = newConnector(cc)
	}

	policy, err := newPolicy(lbc)
	if err != nil {
		return nil, err
	}

	lb := &LoadBalancer{
		discovery: NewStaticDiscovery(connectors),
		health:    NoneHealthChecker{},
		policy:    policy,
	}
	lb.health.Start(connectors)
	return lb, nil
}

func newPolicy(lbc config.LoadBalanceConfig) (Policy, error) {
	key := SelectKey(lbc.FNVKey)
	if key == "" {
		key = KeyUriPath
	}
	switch lbc.Selection {
	case "", "round-robin":
		return &RoundRobin{}, nil
	case "random":
		return Random{}, nil
	case "fnv":
		return FNV{Key: key}, nil
	case "ketama":
		return &Ketama{Key: key}, nil
	default:
		return nil, fmt.Errorf("loadbalance: unknown selection policy %q", lbc.Selection)
	}
}

// Select picks one healthy Connector for the request, or ErrNoUpstream if
// the healthy set is empty (spec.md §4.3: "the engine returns HTTP 502 and
// the request is abandoned").
func (lb *LoadBalancer) Select(ctx SelectCtx) (*Connector, error) {
	all := lb.discovery.Connectors()
	healthy := make([]*Connector, 0, len(all))
	for _, c := range all {
		if c.Healthy() {
			healthy = append(healthy, c)
		}
	}
	return lb.policy.Select(ctx, healthy)
}

// Connectors exposes the full configured set (healthy or not), mostly for
// tests and observability.
func (lb *LoadBalancer) Connectors() []*Connector { return lb.discovery.Connectors() }

// PolicyName reports the configured selection policy, for the "policy"
// label on telemetry.SelectionsTotal.
func (lb *LoadBalancer) PolicyName() string { return lb.policy.Name() }

// Stop releases the health checker (a no-op for NoneHealthChecker, but the
// interface exists so a future periodic prober has somewhere to stop).
func (lb *LoadBalancer) Stop() { lb.health.Stop() }
