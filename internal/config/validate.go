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
	"net"
	"regexp"
	"strings"
)

// ValidationError reports a config error located at a specific node, in the
// style spec.md §7 requires: configuration errors are always fatal and
// reported with the offending node's location.
type ValidationError struct {
	Node string // e.g. "services.api.rate-limiting.rule[2]"
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Node, e.Msg)
}

// Validate performs full semantic validation of a Document, mirroring
// spec.md §4.1's "validated fully at start-up; a malformed regex or
// malformed CIDR is fatal to config validation" for every node that compiles
// a pattern, plus the structural rules from §6. It compiles every regex and
// CIDR eagerly so a rejected config never reaches the hot path (§9).
//
// Validate also returns non-fatal warnings (currently just the
// any-matching-uri/max-buckets overlap from §9's second open question);
// those never block a config from taking effect.
func Validate(doc *Document) (warnings []string, err error) {
	if doc.System.ThreadsPerService <= 0 {
		doc.System.ThreadsPerService = 8
	}
	if doc.System.Daemonize && doc.System.PidFile == "" {
		return nil, &ValidationError{Node: "system", Msg: "daemonize requires pid-file"}
	}

	seenAddrs := make(map[string]string) // address -> owning service name

	for name, svc := range doc.Services {
		svcNode := fmt.Sprintf("services.%s", name)

		if len(svc.Listeners) == 0 {
			return nil, &ValidationError{Node: svcNode, Msg: "service must declare at least one listener"}
		}
		for i, l := range svc.Listeners {
			node := fmt.Sprintf("%s.listeners[%d]", svcNode, i)
			if l.Address == "" {
				return nil, &ValidationError{Node: node, Msg: "listener address must not be empty"}
			}
			if owner, dup := seenAddrs[l.Address]; dup {
				return nil, &ValidationError{Node: node, Msg: fmt.Sprintf("address %q already owned by service %q (every listener address is owned by exactly one service)", l.Address, owner)}
			}
			seenAddrs[l.Address] = name

			if (l.CertPath == "") != (l.KeyPath == "") {
				return nil, &ValidationError{Node: node, Msg: "cert-path and key-path must be supplied together"}
			}
		}

		if svc.Proxy != nil && svc.FileServer != nil {
			return nil, &ValidationError{Node: svcNode, Msg: "connectors/path-control and file-server are mutually exclusive"}
		}
		if svc.Proxy == nil && svc.FileServer == nil {
			return nil, &ValidationError{Node: svcNode, Msg: "service must configure either a proxy backend or a file-server backend"}
		}

		if svc.FileServer != nil {
			if svc.FileServer.BasePath == "" {
				return nil, &ValidationError{Node: svcNode + ".file-server", Msg: "base-path is required"}
			}
		}

		if svc.Proxy != nil {
			w, err := validateProxy(svcNode, svc.Proxy)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, w...)
		}
	}

	return warnings, nil
}

func validateProxy(svcNode string, p *ProxyBackendConfig) (warnings []string, err error) {
	for i, c := range p.Connectors {
		node := fmt.Sprintf("%s.connectors[%d]", svcNode, i)
		if c.Address == "" {
			return nil, &ValidationError{Node: node, Msg: "connector address must not be empty"}
		}
		proto := c.Proto
		if proto == "" {
			if c.TLSSNI != "" {
				proto = ProtoH2OrH1
			} else {
				proto = ProtoH1Only
			}
			p.Connectors[i].Proto = proto
		}
		if proto != ProtoH1Only && c.TLSSNI == "" {
			return nil, &ValidationError{Node: node, Msg: fmt.Sprintf("proto %q requires tls-sni to be set", proto)}
		}
		switch proto {
		case ProtoH1Only, ProtoH2Only, ProtoH2OrH1:
		default:
			return nil, &ValidationError{Node: node, Msg: fmt.Sprintf("unknown proto %q", proto)}
		}
	}

	switch p.LoadBalance.Selection {
	case "", "round-robin":
		p.LoadBalance.Selection = "round-robin"
	case "random":
	case "fnv", "ketama":
		switch p.LoadBalance.FNVKey {
		case "", "uri-path":
			p.LoadBalance.FNVKey = "uri-path"
		case "source-addr-and-uri-path":
		default:
			return nil, &ValidationError{Node: svcNode + ".load-balance", Msg: fmt.Sprintf("unknown selection key %q", p.LoadBalance.FNVKey)}
		}
	default:
		return nil, &ValidationError{Node: svcNode + ".load-balance", Msg: fmt.Sprintf("unknown selection policy %q", p.LoadBalance.Selection)}
	}
	switch p.LoadBalance.Discovery {
	case "", "static":
		p.LoadBalance.Discovery = "static"
	default:
		return nil, &ValidationError{Node: svcNode + ".load-balance", Msg: fmt.Sprintf("unknown discovery policy %q (only \"static\" is implemented)", p.LoadBalance.Discovery)}
	}
	switch p.LoadBalance.HealthCheck {
	case "", "none":
		p.LoadBalance.HealthCheck = "none"
	default:
		return nil, &ValidationError{Node: svcNode + ".load-balance", Msg: fmt.Sprintf("unknown health-check policy %q (only \"none\" is implemented)", p.LoadBalance.HealthCheck)}
	}

	if err := validateFilters(svcNode+".path-control.request-filters", p.PathControl.RequestFilters, requestFilterKinds); err != nil {
		return nil, err
	}
	if err := validateFilters(svcNode+".path-control.upstream-request", p.PathControl.UpstreamRequest, mutatingFilterKinds); err != nil {
		return nil, err
	}
	if err := validateFilters(svcNode+".path-control.upstream-response", p.PathControl.UpstreamResponse, mutatingFilterKinds); err != nil {
		return nil, err
	}

	for i, r := range p.RateLimiting.Rules {
		node := fmt.Sprintf("%s.rate-limiting.rule[%d]", svcNode, i)
		w, err := validateRule(node, &p.RateLimiting.Rules[i])
		if err != nil {
			return nil, err
		}
		if w != "" {
			warnings = append(warnings, w)
		}
		_ = r
	}

	return warnings, nil
}

var requestFilterKinds = map[string]bool{"block-cidr-range": true}
var mutatingFilterKinds = map[string]bool{"remove-header-key-regex": true, "upsert-header": true}

func validateFilters(node string, filters []FilterConfig, allowed map[string]bool) error {
	for i, f := range filters {
		fnode := fmt.Sprintf("%s[%d]", node, i)
		if !allowed[f.Kind] {
			return &ValidationError{Node: fnode, Msg: fmt.Sprintf("filter kind %q is not accepted at this stage", f.Kind)}
		}
		switch f.Kind {
		case "block-cidr-range":
			addrs := f.Params["addrs"]
			if addrs == "" {
				return &ValidationError{Node: fnode, Msg: "block-cidr-range requires addrs"}
			}
			for _, a := range strings.Split(addrs, ",") {
				a = strings.TrimSpace(a)
				if a == "" {
					continue
				}
				if strings.Contains(a, "/") {
					if _, _, err := net.ParseCIDR(a); err != nil {
						return &ValidationError{Node: fnode, Msg: fmt.Sprintf("malformed CIDR %q: %v", a, err)}
					}
				} else if net.ParseIP(a) == nil {
					return &ValidationError{Node: fnode, Msg: fmt.Sprintf("malformed address %q", a)}
				}
			}
		case "remove-header-key-regex":
			pattern := f.Params["pattern"]
			if pattern == "" {
				return &ValidationError{Node: fnode, Msg: "remove-header-key-regex requires pattern"}
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return &ValidationError{Node: fnode, Msg: fmt.Sprintf("malformed regex %q: %v", pattern, err)}
			}
		case "upsert-header":
			if f.Params["key"] == "" {
				return &ValidationError{Node: fnode, Msg: "upsert-header requires key"}
			}
		}
	}
	return nil
}

// normalizeRuleKind resolves the spec.md §9 "specific-uri vs uri" open
// question: both are accepted as aliases for the same rule kind (see
// DESIGN.md).
func normalizeRuleKind(kind string) string {
	if kind == "uri" {
		return "specific-uri"
	}
	return kind
}

func validateRule(node string, r *RuleConfig) (warning string, err error) {
	r.Kind = normalizeRuleKind(r.Kind)
	switch r.Kind {
	case "source-ip":
	case "specific-uri", "any-matching-uri":
		if r.Pattern == "" {
			return "", &ValidationError{Node: node, Msg: fmt.Sprintf("%s requires pattern", r.Kind)}
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return "", &ValidationError{Node: node, Msg: fmt.Sprintf("malformed regex %q: %v", r.Pattern, err)}
		}
		if r.Kind == "any-matching-uri" && r.MaxBuckets > 1 {
			warning = fmt.Sprintf("%s: max-buckets=%d is ignored for any-matching-uri (design assumes exactly one shared bucket)", node, r.MaxBuckets)
			r.MaxBuckets = 1
		}
	default:
		return "", &ValidationError{Node: node, Msg: fmt.Sprintf("unknown rule kind %q", r.Kind)}
	}
	if r.TokensPerBucket <= 0 {
		return "", &ValidationError{Node: node, Msg: "tokens-per-bucket must be positive"}
	}
	if r.RefillQty <= 0 {
		return "", &ValidationError{Node: node, Msg: "refill-qty must be positive"}
	}
	if r.RefillPeriod <= 0 {
		return "", &ValidationError{Node: node, Msg: "refill-period must be positive"}
	}
	if r.MaxBuckets <= 0 {
		r.MaxBuckets = 10000
	}
	return warning, nil
}
