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
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// blockCIDRRange rejects any request whose PeerIP falls within one of a
// configured list of addresses or CIDR ranges. request-filters only.
type blockCIDRRange struct {
	nets  []*net.IPNet
	ips   []net.IP
	status int
}

func newBlockCIDRRange(addrsCSV string) (Filter, error) {
	f := &blockCIDRRange{status: http.StatusBadRequest}
	for _, a := range splitCSV(addrsCSV) {
		if containsSlash(a) {
			_, ipnet, err := net.ParseCIDR(a)
			if err != nil {
				return nil, fmt.Errorf("block-cidr-range: malformed CIDR %q: %w", a, err)
			}
			f.nets = append(f.nets, ipnet)
			continue
		}
		ip := net.ParseIP(a)
		if ip == nil {
			return nil, fmt.Errorf("block-cidr-range: malformed address %q", a)
		}
		f.ips = append(f.ips, ip)
	}
	return f, nil
}

func (f *blockCIDRRange) Apply(_ context.Context, ex *Exchange) Outcome {
	peer := net.ParseIP(ex.PeerIP)
	if peer == nil {
		return proceed
	}
	for _, ip := range f.ips {
		if ip.Equal(peer) {
			return Reject(f.status)
		}
	}
	for _, n := range f.nets {
		if n.Contains(peer) {
			return Reject(f.status)
		}
	}
	return proceed
}

// removeHeaderKeyRegex removes every header whose key matches pattern.
// upstream-request and upstream-response only.
type removeHeaderKeyRegex struct {
	re *regexp.Regexp
}

func newRemoveHeaderKeyRegex(pattern string) (Filter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("remove-header-key-regex: malformed regex %q: %w", pattern, err)
	}
	return &removeHeaderKeyRegex{re: re}, nil
}

func (f *removeHeaderKeyRegex) Apply(_ context.Context, ex *Exchange) Outcome {
	for key := range ex.Headers {
		if f.re.MatchString(key) {
			ex.Headers.Del(key)
		}
	}
	return proceed
}

// upsertHeader sets key=value, replacing any existing value for that key.
// upstream-request and upstream-response only.
type upsertHeader struct {
	key, value string
}

func newUpsertHeader(key, value string) (Filter, error) {
	if key == "" {
		return nil, fmt.Errorf("upsert-header: key must not be empty")
	}
	return &upsertHeader{key: key, value: value}, nil
}

func (f *upsertHeader) Apply(_ context.Context, ex *Exchange) Outcome {
	ex.Headers.Set(f.key, f.value)
	return proceed
}

func splitCSV(s string) []string {
	var out []string
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

func containsSlash(s string) bool { return strings.Contains(s, "/") }
