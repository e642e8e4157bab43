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

package pathcontrol

import (
	"fmt"

	"river/internal/config"
)

func build(configs []config.FilterConfig, factory func(config.FilterConfig) (Filter, error)) (*Chain, error) {
	c := &Chain{}
	for i, fc := range configs {
		f, err := factory(fc)
		if err != nil {
			return nil, fmt.Errorf("path-control filter[%d] kind=%s: %w", i, fc.Kind, err)
		}
		c.filters = append(c.filters, f)
	}
	return c, nil
}

// NewRequestChain builds the request-filters stage. Only block-cidr-range
// is accepted here (reject-only filters, per spec.md §4.1).
func NewRequestChain(configs []config.FilterConfig) (*Chain, error) {
	return build(configs, func(fc config.FilterConfig) (Filter, error) {
		switch fc.Kind {
		case "block-cidr-range":
			return newBlockCIDRRange(fc.Params["addrs"])
		default:
			return nil, fmt.Errorf("kind %q is not accepted in the request-filters stage", fc.Kind)
		}
	})
}

// NewUpstreamRequestChain builds the upstream-request stage.
func NewUpstreamRequestChain(configs []config.FilterConfig) (*Chain, error) {
	return build(configs, newMutatingFilter)
}

// NewUpstreamResponseChain builds the upstream-response stage.
func NewUpstreamResponseChain(configs []config.FilterConfig) (*Chain, error) {
	return build(configs, newMutatingFilter)
}

func newMutatingFilter(fc config.FilterConfig) (Filter, error) {
	switch fc.Kind {
	case "remove-header-key-regex":
		return newRemoveHeaderKeyRegex(fc.Params["pattern"])
	case "upsert-header":
		return newUpsertHeader(fc.Params["key"], fc.Params["value"])
	default:
		return nil, fmt.Errorf("kind %q is not accepted in this stage", fc.Kind)
	}
}

// Pipeline groups the three stages of one Service's path-control
// configuration, built once at Service construction and shared, read-only,
// by every request afterward (spec.md §4.1).
type Pipeline struct {
	RequestFilters   *Chain
	UpstreamRequest  *Chain
	UpstreamResponse *Chain
}

// NewPipeline compiles all three stages, failing on the first invalid
// filter of any stage.
func NewPipeline(pc config.PathControlConfig) (*Pipeline, error) {
	req, err := NewRequestChain(pc.RequestFilters)
	if err != nil {
		return nil, err
	}
	upReq, err := NewUpstreamRequestChain(pc.UpstreamRequest)
	if err != nil {
		return nil, err
	}
	upResp, err := NewUpstreamResponseChain(pc.UpstreamResponse)
	if err != nil {
		return nil, err
	}
	return &Pipeline{RequestFilters: req, UpstreamRequest: upReq, UpstreamResponse: upResp}, nil
}
