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

//go:build linux

package hotreload

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

const maxManifestBytes = 64 * 1024

// sendFDs transmits files (and the encoded manifest alongside them as the
// regular message payload) over conn as one SCM_RIGHTS ancillary message,
// per spec.md §4.5's "platform note: listener passing is Linux-only."
func sendFDs(conn *net.UnixConn, manifest Manifest, files []*os.File) error {
	payload, err := manifest.encode()
	if err != nil {
		return fmt.Errorf("hotreload: encode manifest: %w", err)
	}

	fds := make([]int, len(files))
	for i, f := range files {
		fds[i] = int(f.Fd())
	}
	oob := unix.UnixRights(fds...)

	n, oobn, err := conn.WriteMsgUnix(payload, oob, nil)
	if err != nil {
		return fmt.Errorf("hotreload: WriteMsgUnix: %w", err)
	}
	if n != len(payload) || oobn != len(oob) {
		return fmt.Errorf("hotreload: short write (payload %d/%d, oob %d/%d)", n, len(payload), oobn, len(oob))
	}
	return nil
}

// recvFDs reads one SCM_RIGHTS message from conn, returning the decoded
// manifest and the received descriptors as *os.File, in manifest order.
func recvFDs(conn *net.UnixConn) (Manifest, []*os.File, error) {
	buf := make([]byte, maxManifestBytes)
	oob := make([]byte, unix.CmsgSpace(256*4)) // room for up to 256 fds

	n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("hotreload: ReadMsgUnix: %w", err)
	}

	manifest, err := decodeManifest(buf[:n])
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("hotreload: decode manifest: %w", err)
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("hotreload: ParseSocketControlMessage: %w", err)
	}

	var fds []int
	for _, scm := range scms {
		parsed, err := unix.ParseUnixRights(&scm)
		if err != nil {
			continue
		}
		fds = append(fds, parsed...)
	}
	if len(fds) != len(manifest.Entries) {
		for _, fd := range fds {
			_ = unix.Close(fd)
		}
		return Manifest{}, nil, fmt.Errorf("hotreload: received %d fds, manifest names %d listeners", len(fds), len(manifest.Entries))
	}

	files := make([]*os.File, len(fds))
	for i, fd := range fds {
		files[i] = os.NewFile(uintptr(fd), manifest.Entries[i].Address)
	}
	return manifest, files, nil
}
