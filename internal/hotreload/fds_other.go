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

//go:build !linux

package hotreload

import (
	"fmt"
	"net"
	"os"
	"runtime"
)

// sendFDs and recvFDs fail fast on non-Linux platforms: the upgrade
// protocol relies on SCM_RIGHTS ancillary messages, which this build
// does not implement. Per spec.md's platform note, listener passing is
// Linux-only and must fail with a clear diagnostic elsewhere.
func sendFDs(conn *net.UnixConn, manifest Manifest, files []*os.File) error {
	return fmt.Errorf("hotreload: listener hand-off is Linux-only, unsupported on %s", runtime.GOOS)
}

func recvFDs(conn *net.UnixConn) (Manifest, []*os.File, error) {
	return Manifest{}, nil, fmt.Errorf("hotreload: listener hand-off is Linux-only, unsupported on %s", runtime.GOOS)
}
