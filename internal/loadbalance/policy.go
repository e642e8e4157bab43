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
	"hash/fnv"
	"math/rand/v2"
	"sync/atomic"
)

// SelectKey identifies which request attribute FNV/Ketama hash on.
type SelectKey string

const (
	KeyUriPath               SelectKey = "uri-path"
	KeySourceAddrAndUriPath  SelectKey = "source-addr-and-uri-path"
)

// SelectCtx carries the request attributes a Policy may hash on.
type SelectCtx struct {
	SourceAddr string
	UriPath    string
}

func (s SelectCtx) key(k SelectKey) string {
	if k == KeySourceAddrAndUriPath {
		return s.SourceAddr + s.UriPath
	}
	return s.UriPath
}

// Policy selects one healthy Connector for a request.
type Policy interface {
	Select(ctx SelectCtx, healthy []*Connector) (*Connector, error)
	// Name identifies the policy for the "policy" label on
	// telemetry.SelectionsTotal.
	Name() string
}

// RoundRobin advances an atomic index modulo the healthy-set size.
type RoundRobin struct {
	next atomic.Uint64
}

func (p *RoundRobin) Select(_ SelectCtx, healthy []*Connector) (*Connector, error) {
	if len(healthy) == 0 {
		return nil, ErrNoUpstream
	}
	i := p.next.Add(1) - 1
	return healthy[int(i%uint64(len(healthy)))], nil
}

func (*RoundRobin) Name() string { return "round-robin" }

// Random picks uniformly from the healthy set.
type Random struct{}

func (Random) Select(_ SelectCtx, healthy []*Connector) (*Connector, error) {
	if len(healthy) == 0 {
		return nil, ErrNoUpstream
	}
	return healthy[rand.IntN(len(healthy))], nil
}

func (Random) Name() string { return "random" }

// FNV computes an FNV-1a 64-bit hash of the configured key and takes it
// modulo the healthy-set size.
type FNV struct {
	Key SelectKey
}

func (p FNV) Select(ctx SelectCtx, healthy []*Connector) (*Connector, error) {
	if len(healthy) == 0 {
		return nil, ErrNoUpstream
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(ctx.key(p.Key)))
	return healthy[int(h.Sum64()%uint64(len(healthy)))], nil
}

func (FNV) Name() string { return "fnv" }
