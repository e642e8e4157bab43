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

// Package config holds the validated, in-memory configuration document and
// the loaders that produce it. The raw parser (TOML or KDL) is a narrow
// external collaborator: it only needs to produce the Document types below,
// which carry no parser-specific state once Validate has run.
package config

import "time"

// Document is the top-level configuration record. It is constructed by a
// Source's Load method; Validate (defaulting) and the CLI overrides in
// cmd/river mutate it before the supervisor is built, and it is not
// mutated after that; a reconfiguration replaces the whole Document via
// hot reload.
type Document struct {
	System   System
	Services map[string]ServiceConfig
}

// System carries the process-wide settings.
type System struct {
	ThreadsPerService int    // positive integer; default 8
	Daemonize         bool   // default false
	PidFile           string // absolute path; required when Daemonize
	UpgradeSocket     string // absolute path; required if --upgrade not given on CLI
}

// ServiceConfig is one named service block. Exactly one of Proxy or
// FileServer is set (mutual exclusion is enforced by Validate).
type ServiceConfig struct {
	Name      string
	Listeners []ListenerConfig

	Proxy      *ProxyBackendConfig
	FileServer *FileServerConfig
}

// ListenerConfig describes one bound address.
type ListenerConfig struct {
	Address  string
	CertPath string
	KeyPath  string
	OfferH2  bool // defaults true when TLS is configured, false otherwise
}

// TLSConfigured reports whether this listener terminates TLS.
func (l ListenerConfig) TLSConfigured() bool {
	return l.CertPath != "" && l.KeyPath != ""
}

// ConnectorProto is the upstream protocol preference for a Connector.
type ConnectorProto string

const (
	ProtoH1Only   ConnectorProto = "h1-only"
	ProtoH2Only   ConnectorProto = "h2-only"
	ProtoH2OrH1   ConnectorProto = "h2-or-h1"
)

// ConnectorConfig describes one configured upstream endpoint.
type ConnectorConfig struct {
	Address string
	TLSSNI  string
	Proto   ConnectorProto
}

// LoadBalanceConfig selects the policy triple for a proxy service.
type LoadBalanceConfig struct {
	Selection   string // "round-robin" | "random" | "fnv" | "ketama"
	FNVKey      string // "uri-path" | "source-addr-and-uri-path", for fnv/ketama
	Discovery   string // "static"
	HealthCheck string // "none"
}

// ProxyBackendConfig is the connectors + path-control + rate-limiting
// configuration for a proxying service.
type ProxyBackendConfig struct {
	Connectors   []ConnectorConfig
	LoadBalance  LoadBalanceConfig
	PathControl  PathControlConfig
	RateLimiting RateLimitingConfig
}

// FileServerConfig is the configuration for a static-file service. It is
// mutually exclusive with ProxyBackendConfig.
type FileServerConfig struct {
	BasePath string
}

// PathControlConfig groups the three filter-chain stages.
type PathControlConfig struct {
	RequestFilters    []FilterConfig
	UpstreamRequest   []FilterConfig
	UpstreamResponse  []FilterConfig
}

// FilterConfig is one unparsed filter node: a kind tag plus raw parameters.
// internal/pathcontrol compiles these into executable Filters at Service
// construction time, failing validation on the first malformed one.
type FilterConfig struct {
	Kind   string
	Params map[string]string
}

// RateLimitingConfig is the per-service rate-limiter configuration.
type RateLimitingConfig struct {
	TimeoutMillis int
	Rules         []RuleConfig
}

// RuleConfig is one unparsed rate-limit rule.
type RuleConfig struct {
	Kind            string // "source-ip" | "specific-uri" | "uri" (alias) | "any-matching-uri"
	Pattern         string // regex, for uri-based kinds
	MaxBuckets      int
	TokensPerBucket int64
	RefillQty       int64
	RefillPeriod    time.Duration
}
