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

// Package hotreload implements the listener hand-off protocol from
// spec.md §4.5: an outgoing process sends its Services' open listening
// file descriptors, plus a manifest of which descriptor belongs to which
// configured address, to an incoming process over a Unix domain socket
// using SCM_RIGHTS ancillary messages.
package hotreload

import "encoding/json"

// Manifest enumerates which file descriptor (by position in the SCM_RIGHTS
// payload) corresponds to which configured listener address.
type Manifest struct {
	Entries []ManifestEntry `json:"entries"`
}

// ManifestEntry names one transferred listener.
type ManifestEntry struct {
	Address string `json:"address"`
}

func (m Manifest) encode() ([]byte, error) {
	return json.Marshal(m)
}

func decodeManifest(b []byte) (Manifest, error) {
	var m Manifest
	err := json.Unmarshal(b, &m)
	return m, err
}
