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

// Package loadbalance implements upstream selection: Connectors, selection
// policies (RoundRobin, Random, FNV, Ketama), a Static discovery source, and
// a no-op health checker (spec.md §4.3).
package loadbalance

import (
	"errors"
	"sync/atomic"

	"river/internal/config"
)

// ErrNoUpstream is returned when the healthy set is empty (spec.md §4.3:
// "the engine returns HTTP 502 and the request is abandoned").
var ErrNoUpstream = errors.New("loadbalance: no healthy upstream")

// Connector is one configured potential upstream endpoint.
type Connector struct {
	Address string
	TLSSNI  string
	Proto   config.ConnectorProto

	healthy atomic.Bool
}

func newConnector(cc config.ConnectorConfig) *Connector {
	c := &Connector{Address: cc.Address, TLSSNI: cc.TLSSNI, Proto: cc.Proto}
	c.healthy.Store(true) // None health-checker: all configured Connectors always healthy
	return c
}

// Healthy reports the Connector's current health flag.
func (c *Connector) Healthy() bool { return c.healthy.Load() }

// SetHealthy mutates the health flag; reserved for a future HealthChecker
// kind (spec.md §4.3: "A future kind will perform periodic probes").
func (c *Connector) SetHealthy(v bool) { c.healthy.Store(v) }
