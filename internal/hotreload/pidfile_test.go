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
	"os"
	"path/filepath"
	"testing"
)

func TestWritePidfile_CreatesAndReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "river.pid")

	if err := WritePidfile(path); err != nil {
		t.Fatalf("WritePidfile: %v", err)
	}
	pid, err := ReadPidfile(path)
	if err != nil {
		t.Fatalf("ReadPidfile: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestWritePidfile_ReplacesExistingFileAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "river.pid")
	if err := os.WriteFile(path, []byte("99999999"), 0o644); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}

	if err := WritePidfile(path); err != nil {
		t.Fatalf("WritePidfile: %v", err)
	}
	pid, err := ReadPidfile(path)
	if err != nil {
		t.Fatalf("ReadPidfile: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(path) {
			t.Errorf("leftover temp file in pidfile directory: %s", e.Name())
		}
	}
}

func TestReadPidfile_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "river.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	if _, err := ReadPidfile(path); err == nil {
		t.Fatal("expected an error reading a garbage pidfile")
	}
}
