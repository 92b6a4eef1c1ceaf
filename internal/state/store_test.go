// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package state

import (
	"os"
	"path/filepath"
	"testing"

	"cirello.io/pmo/internal/pmoctx"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	pctx := pmoctx.New().WithDataRoot(filepath.Join(dir, ".pmo"))
	pctx.Hostname = func() (string, error) { return "testhost", nil }
	s, err := Open(pctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStoreHostScopedLayout(t *testing.T) {
	s := testStore(t)
	if filepath.Base(s.Root) != "testhost" {
		t.Fatalf("store root not host-scoped: %s", s.Root)
	}
	for _, dir := range []string{"pids", "logs"} {
		if info, err := os.Stat(filepath.Join(s.Root, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory to exist", dir)
		}
	}
}

func TestStoreEnsureLayoutIdempotent(t *testing.T) {
	s := testStore(t)
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("second EnsureLayout should be a no-op: %v", err)
	}
}

func TestReadPIDMissingIsNotExist(t *testing.T) {
	s := testStore(t)
	if _, err := s.ReadPID("ghost"); !os.IsNotExist(err) {
		t.Fatalf("want os.IsNotExist, got %v", err)
	}
}

func TestReadRestartsDefaultsToZero(t *testing.T) {
	s := testStore(t)
	n, err := s.ReadRestarts("fresh")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("want 0, got %d", n)
	}
}

func TestWriteAtomicThenRead(t *testing.T) {
	s := testStore(t)
	if err := WriteAtomic(s.PIDPath("web"), []byte("1234")); err != nil {
		t.Fatal(err)
	}
	pid, err := s.ReadPID("web")
	if err != nil {
		t.Fatal(err)
	}
	if pid != 1234 {
		t.Fatalf("want 1234, got %d", pid)
	}
}

func TestRemovePIDIdempotent(t *testing.T) {
	s := testStore(t)
	if err := s.RemovePID("absent"); err != nil {
		t.Fatalf("removing an absent pid file should be a no-op: %v", err)
	}
	if err := WriteAtomic(s.PIDPath("web"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.RemovePID("web"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemovePID("web"); err != nil {
		t.Fatalf("second removal should also be a no-op: %v", err)
	}
}

func TestPidFilePresenceImpliesTimeFile(t *testing.T) {
	// Mirrors the universal invariant in spec.md §8: writers must write
	// time before pid, so any observer that sees pid_file also sees
	// time_file. This test exercises the Store helper in the order the
	// Process Runner is required to use.
	s := testStore(t)
	name := "invariant"
	if err := WriteAtomic(s.TimePath(name), []byte("1700000000.0")); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(s.PIDPath(name), []byte("42")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.PIDPath(name)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.TimePath(name)); err != nil {
		t.Fatal(err)
	}
}
