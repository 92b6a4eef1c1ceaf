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

package stopper

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cirello.io/pmo/internal/config"
	"cirello.io/pmo/internal/pmoctx"
	"cirello.io/pmo/internal/pmoerrors"
	"cirello.io/pmo/internal/process"
	"cirello.io/pmo/internal/state"
)

func testStore(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	pctx := pmoctx.New().WithDataRoot(filepath.Join(dir, ".pmo"))
	pctx.Hostname = func() (string, error) { return "testhost", nil }
	s, err := state.Open(pctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStopNotRunningIsNoop(t *testing.T) {
	store := testStore(t)
	err := Stop(store, "ghost", time.Second)
	var notRunning *pmoerrors.NotRunning
	if !errors.As(err, &notRunning) {
		t.Fatalf("want NotRunning, got %v", err)
	}
}

func TestStopKillsShellPipeline(t *testing.T) {
	store := testStore(t)
	spec := config.ServiceSpec{Name: "p", Cmd: "yes | head -n 1000000 | wc -l", Env: os.Environ()}

	outcome, err := process.Start(store, spec, false)
	if err != nil {
		t.Fatal(err)
	}
	waitForAlive(t, outcome.PID)

	if err := Stop(store, "p", 5*time.Second); err != nil {
		t.Fatal(err)
	}

	if alive(outcome.PID) {
		t.Fatalf("leader pid %d should be dead after Stop", outcome.PID)
	}
	if _, err := os.Stat(store.PIDPath("p")); !os.IsNotExist(err) {
		t.Fatal("pid file should be removed after successful stop")
	}
	if _, err := os.Stat(store.TimePath("p")); !os.IsNotExist(err) {
		t.Fatal("time file should be removed after successful stop")
	}
}

func TestStopOnStaleCleansUpAndReportsNotRunning(t *testing.T) {
	store := testStore(t)
	if err := state.WriteAtomic(store.PIDPath("x"), []byte("123456789")); err != nil {
		t.Fatal(err)
	}

	err := Stop(store, "x", time.Second)
	var notRunning *pmoerrors.NotRunning
	if !errors.As(err, &notRunning) {
		t.Fatalf("want NotRunning for a stale pid, got %v", err)
	}
	if _, statErr := os.Stat(store.PIDPath("x")); !os.IsNotExist(statErr) {
		t.Fatal("stale pid file should be auto-removed")
	}
}

func TestRestartIncrementsCounter(t *testing.T) {
	store := testStore(t)
	spec := config.ServiceSpec{Name: "s", Cmd: "sleep 30", Env: os.Environ()}

	o1, err := process.Start(store, spec, false)
	if err != nil {
		t.Fatal(err)
	}
	waitForAlive(t, o1.PID)

	o2, err := Restart(store, spec, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	waitForAlive(t, o2.PID)

	o3, err := Restart(store, spec, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	waitForAlive(t, o3.PID)
	defer Stop(store, "s", 5*time.Second)

	n, err := store.ReadRestarts("s")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("want restarts=2 after two restarts, got %d", n)
	}
}

func waitForAlive(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if alive(pid) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("pid %d never came alive", pid)
}
