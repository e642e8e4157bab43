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
	"hash/fnv"
	"sort"
	"sync/atomic"
)

// VirtualNodesPerConnector is the default ring density (spec.md §4.3: "a
// fixed ring of virtual nodes per Connector (e.g. 160)").
const VirtualNodesPerConnector = 160

type ringPoint struct {
	hash      uint64
	connector *Connector
}

// ring is an immutable snapshot; rebuilt wholesale and swapped atomically
// on any healthy-set change, rather than mutated in place (spec.md §5:
// "writers ... briefly exclude readers during ring rebuild" realized here
// as copy-on-write rather than a long-held lock).
type ring struct {
	points []ringPoint
	set    []*Connector // healthy set the ring was built from
}

func buildRing(healthy []*Connector) *ring {
	points := make([]ringPoint, 0, len(healthy)*VirtualNodesPerConnector)
	for _, c := range healthy {
		for v := 0; v < VirtualNodesPerConnector; v++ {
			h := fnv.New64a()
			_, _ = fmt.Fprintf(h, "%s-%d", c.Address, v)
			points = append(points, ringPoint{hash: h.Sum64(), connector: c})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].hash < points[j].hash })
	return &ring{points: points, set: healthy}
}

func (r *ring) walk(keyHash uint64) (*Connector, bool) {
	if len(r.points) == 0 {
		return nil, false
	}
	i := sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= keyHash })
	if i == len(r.points) {
		i = 0
	}
	return r.points[i].connector, true
}

// Ketama is consistent hashing with a fixed ring of virtual nodes per
// Connector. A key maps to the same Connector whenever that Connector is
// healthy, independent of other membership changes (spec.md §8's Ketama
// stability property).
type Ketama struct {
	Key SelectKey

	current atomic.Pointer[ring]
}

func (*Ketama) Name() string { return "ketama" }

// Rebuild recomputes the ring for a new healthy set and atomically
// publishes it; readers never observe a partially-built ring.
func (k *Ketama) Rebuild(healthy []*Connector) {
	k.current.Store(buildRing(healthy))
}

func (k *Ketama) Select(ctx SelectCtx, healthy []*Connector) (*Connector, error) {
	if len(healthy) == 0 {
		return nil, ErrNoUpstream
	}
	r := k.current.Load()
	if r == nil || !sameSet(r.set, healthy) {
		k.Rebuild(healthy)
		r = k.current.Load()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(ctx.key(k.Key)))
	c, ok := r.walk(h.Sum64())
	if !ok {
		return nil, ErrNoUpstream
	}
	return c, nil
}

func sameSet(a, b []*Connector) bool {
	if len(a) != len(b) {
		return false
	}
	idx := make(map[*Connector]bool, len(a))
	for _, c := range a {
		idx[c] = true
	}
	for _, c := range b {
		if !idx[c] {
			return false
		}
	}
	return true
}
