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

// Discovery supplies the configured Connector set. The present spec
// implements Static only; the interface exists so a future dynamic source
// is a pure addition (spec.md §4.3).
type Discovery interface {
	Connectors() []*Connector
}

// StaticDiscovery returns the fixed, config-declared Connector list,
// mutated only by health transitions.
type StaticDiscovery struct {
	connectors []*Connector
}

// NewStaticDiscovery builds a StaticDiscovery over an already-constructed
// Connector slice.
func NewStaticDiscovery(connectors []*Connector) *StaticDiscovery {
	return &StaticDiscovery{connectors: connectors}
}

func (d *StaticDiscovery) Connectors() []*Connector { return d.connectors }

// HealthChecker mutates Connector health flags. The present spec
// implements None only: every configured Connector is always healthy.
type HealthChecker interface {
	Start(connectors []*Connector)
	Stop()
}

// NoneHealthChecker never touches health flags (spec.md §4.3).
type NoneHealthChecker struct{}

func (NoneHealthChecker) Start([]*Connector) {}
func (NoneHealthChecker) Stop()               {}
