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
	"os"
	"path/filepath"
	"strconv"
)

// WritePidfile atomically replaces path's contents with the current
// process's PID, per spec.md §4.5: "the successor, once serving, atomically
// replaces any existing pidfile." It writes to a temp file in path's
// directory and renames over the destination, so a concurrent reader
// never observes a partially-written pidfile.
func WritePidfile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pidfile-*")
	if err != nil {
		return fmt.Errorf("hotreload: create temp pidfile in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("hotreload: write temp pidfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("hotreload: close temp pidfile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("hotreload: rename temp pidfile to %s: %w", path, err)
	}
	return nil
}

// ReadPidfile returns the PID recorded at path.
func ReadPidfile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("hotreload: read pidfile %s: %w", path, err)
	}
	pid, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, fmt.Errorf("hotreload: pidfile %s contains garbage: %w", path, err)
	}
	return pid, nil
}
