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

package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// tomlDocument mirrors Document's shape using tags the TOML decoder can
// drive directly; a second pass (decodeTOML) lowers it into the canonical
// Document/ServiceConfig types so the rest of the codebase never depends on
// the wire format.
type tomlDocument struct {
	System   tomlSystem             `toml:"system"`
	Services map[string]tomlService `toml:"services"`
}

type tomlSystem struct {
	ThreadsPerService int    `toml:"threads-per-service"`
	Daemonize         bool   `toml:"daemonize"`
	PidFile           string `toml:"pid-file"`
	UpgradeSocket     string `toml:"upgrade-socket"`
}

type tomlListener struct {
	Address  string `toml:"address"`
	CertPath string `toml:"cert-path"`
	KeyPath  string `toml:"key-path"`
	OfferH2  *bool  `toml:"offer-h2"`
}

type tomlConnector struct {
	Address string `toml:"address"`
	TLSSNI  string `toml:"tls-sni"`
	Proto   string `toml:"proto"`
}

type tomlLoadBalance struct {
	Selection   string `toml:"selection"`
	FNVKey      string `toml:"key"`
	Discovery   string `toml:"discovery"`
	HealthCheck string `toml:"health-check"`
}

type tomlFilter struct {
	Kind   string            `toml:"kind"`
	Params map[string]string `toml:"params"`
}

type tomlPathControl struct {
	RequestFilters   []tomlFilter `toml:"request-filters"`
	UpstreamRequest  []tomlFilter `toml:"upstream-request"`
	UpstreamResponse []tomlFilter `toml:"upstream-response"`
}

type tomlRule struct {
	Kind            string `toml:"kind"`
	Pattern         string `toml:"pattern"`
	MaxBuckets      int    `toml:"max-buckets"`
	TokensPerBucket int64  `toml:"tokens-per-bucket"`
	RefillQty       int64  `toml:"refill-qty"`
	RefillRateMs    int64  `toml:"refill-rate-ms"`
}

type tomlRateLimiting struct {
	TimeoutMillis int        `toml:"timeout-millis"`
	Rules         []tomlRule `toml:"rule"`
}

type tomlFileServer struct {
	BasePath string `toml:"base-path"`
}

type tomlService struct {
	Listeners    []tomlListener    `toml:"listeners"`
	Connectors   []tomlConnector   `toml:"connectors"`
	LoadBalance  *tomlLoadBalance  `toml:"load-balance"`
	PathControl  *tomlPathControl  `toml:"path-control"`
	RateLimiting *tomlRateLimiting `toml:"rate-limiting"`
	FileServer   *tomlFileServer   `toml:"file-server"`
}

// TOMLSource loads a Document from a TOML file via
// github.com/BurntSushi/toml. It never runs validation itself; callers
// combine it with Validate, matching the teacher's own separation of
// "build the record" from "check the record" (persistence.BuildPersister
// builds; the caller decides what to do with failures).
type TOMLSource struct{}

func (TOMLSource) Load(path string) (*Document, error) {
	var raw tomlDocument
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return lowerTOML(&raw), nil
}

func lowerTOML(raw *tomlDocument) *Document {
	doc := &Document{
		System: System{
			ThreadsPerService: raw.System.ThreadsPerService,
			Daemonize:         raw.System.Daemonize,
			PidFile:           raw.System.PidFile,
			UpgradeSocket:     raw.System.UpgradeSocket,
		},
		Services: make(map[string]ServiceConfig, len(raw.Services)),
	}
	if doc.System.ThreadsPerService == 0 {
		doc.System.ThreadsPerService = 8
	}

	for name, s := range raw.Services {
		svc := ServiceConfig{Name: name}
		for _, l := range s.Listeners {
			offerH2 := l.CertPath != ""
			if l.OfferH2 != nil {
				offerH2 = *l.OfferH2
			}
			svc.Listeners = append(svc.Listeners, ListenerConfig{
				Address:  l.Address,
				CertPath: l.CertPath,
				KeyPath:  l.KeyPath,
				OfferH2:  offerH2,
			})
		}

		if s.FileServer != nil {
			svc.FileServer = &FileServerConfig{BasePath: s.FileServer.BasePath}
		} else {
			p := &ProxyBackendConfig{}
			for _, c := range s.Connectors {
				p.Connectors = append(p.Connectors, ConnectorConfig{
					Address: c.Address,
					TLSSNI:  c.TLSSNI,
					Proto:   ConnectorProto(c.Proto),
				})
			}
			if s.LoadBalance != nil {
				p.LoadBalance = LoadBalanceConfig{
					Selection:   s.LoadBalance.Selection,
					FNVKey:      s.LoadBalance.FNVKey,
					Discovery:   s.LoadBalance.Discovery,
					HealthCheck: s.LoadBalance.HealthCheck,
				}
			}
			if s.PathControl != nil {
				p.PathControl = PathControlConfig{
					RequestFilters:   lowerFilters(s.PathControl.RequestFilters),
					UpstreamRequest:  lowerFilters(s.PathControl.UpstreamRequest),
					UpstreamResponse: lowerFilters(s.PathControl.UpstreamResponse),
				}
			}
			if s.RateLimiting != nil {
				p.RateLimiting.TimeoutMillis = s.RateLimiting.TimeoutMillis
				for _, r := range s.RateLimiting.Rules {
					p.RateLimiting.Rules = append(p.RateLimiting.Rules, RuleConfig{
						Kind:            r.Kind,
						Pattern:         r.Pattern,
						MaxBuckets:      r.MaxBuckets,
						TokensPerBucket: r.TokensPerBucket,
						RefillQty:       r.RefillQty,
						RefillPeriod:    time.Duration(r.RefillRateMs) * time.Millisecond,
					})
				}
			}
			svc.Proxy = p
		}

		doc.Services[name] = svc
	}

	return doc
}

func lowerFilters(in []tomlFilter) []FilterConfig {
	if len(in) == 0 {
		return nil
	}
	out := make([]FilterConfig, len(in))
	for i, f := range in {
		out[i] = FilterConfig{Kind: f.Kind, Params: f.Params}
	}
	return out
}
