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

package hotreload

import (
	"fmt"
	"net"
	"os"
	"sort"
	"time"
)

// HandshakeTimeout bounds how long either side of the handoff waits for
// its peer before giving up, per spec.md §4.5's "the predecessor must not
// block indefinitely waiting for a successor that never connects."
const HandshakeTimeout = 10 * time.Second

// Send implements the outgoing (predecessor) half of the upgrade
// protocol: it dials socketPath, sends every listener in listeners
// (keyed by configured address) as one SCM_RIGHTS message alongside the
// encoded Manifest, and returns once the successor has acknowledged
// receipt.
//
// Send does not itself close listeners — the caller drains and closes
// them only after the successor's acknowledgement, which confirms that
// the descriptors were received (spec.md §4.5's "old process keeps its
// listeners open until the new process signals it is ready").
func Send(socketPath string, listeners map[string]*os.File) error {
	addrs := make([]string, 0, len(listeners))
	for addr := range listeners {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	manifest := Manifest{Entries: make([]ManifestEntry, 0, len(addrs))}
	files := make([]*os.File, 0, len(addrs))
	for _, addr := range addrs {
		manifest.Entries = append(manifest.Entries, ManifestEntry{Address: addr})
		files = append(files, listeners[addr])
	}

	raddr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return fmt.Errorf("hotreload: resolve upgrade socket %s: %w", socketPath, err)
	}
	conn, err := net.DialTimeout("unix", raddr.String(), HandshakeTimeout)
	if err != nil {
		return fmt.Errorf("hotreload: dial upgrade socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("hotreload: upgrade socket %s did not yield a unix connection", socketPath)
	}
	_ = unixConn.SetDeadline(time.Now().Add(HandshakeTimeout))

	if err := sendFDs(unixConn, manifest, files); err != nil {
		return err
	}

	ack := make([]byte, 2)
	if _, err := unixConn.Read(ack); err != nil {
		return fmt.Errorf("hotreload: waiting for successor ack: %w", err)
	}
	if string(ack) != "ok" {
		return fmt.Errorf("hotreload: successor rejected handoff")
	}
	return nil
}

// Receive implements the incoming (successor) half of the upgrade
// protocol: it listens on socketPath, accepts exactly one connection,
// reads the manifest and transferred descriptors, acknowledges receipt,
// and returns the descriptors keyed by configured address for
// service.Build's inherited parameter.
func Receive(socketPath string) (map[string]*os.File, error) {
	_ = os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("hotreload: listen on upgrade socket %s: %w", socketPath, err)
	}
	defer ln.Close()
	defer os.Remove(socketPath)

	if l, ok := ln.(*net.UnixListener); ok {
		_ = l.SetDeadline(time.Now().Add(HandshakeTimeout))
	}

	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("hotreload: accept on upgrade socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("hotreload: upgrade socket %s did not yield a unix connection", socketPath)
	}
	_ = unixConn.SetDeadline(time.Now().Add(HandshakeTimeout))

	manifest, files, err := recvFDs(unixConn)
	if err != nil {
		return nil, err
	}

	if _, err := unixConn.Write([]byte("ok")); err != nil {
		return nil, fmt.Errorf("hotreload: sending ack: %w", err)
	}

	inherited := make(map[string]*os.File, len(files))
	for i, entry := range manifest.Entries {
		inherited[entry.Address] = files[i]
	}
	return inherited, nil
}
