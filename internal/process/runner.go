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

// Package process is the Process Runner: it resolves a ServiceSpec to a
// concrete detached child, wires its stdio to the State Store's log files,
// and records the pid/time/restarts triple atomically, in the order
// spec.md §3 requires.
package process

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"cirello.io/pmo/internal/config"
	"cirello.io/pmo/internal/pmoerrors"
	"cirello.io/pmo/internal/probe"
	"cirello.io/pmo/internal/state"
)

// Outcome reports what Start actually did, distinguishing a fresh spawn
// from the AlreadyRunning no-op, both of which are success paths.
type Outcome struct {
	AlreadyRunning bool
	PID            int
}

// Start spawns spec as a detached process-group leader, unless it is
// already running, in which case it is a no-op. restart marks this start
// as the second half of a restart, which increments the restarts counter;
// a plain start never does.
func Start(store *state.Store, spec config.ServiceSpec, restart bool) (Outcome, error) {
	st, pid, err := probe.Liveness(store, spec.Name)
	if err != nil {
		return Outcome{}, &pmoerrors.IOError{Op: "liveness check", Err: err}
	}
	if st == probe.Running {
		return Outcome{AlreadyRunning: true, PID: pid}, &pmoerrors.AlreadyRunning{Name: spec.Name, PID: pid}
	}
	if st == probe.Stale {
		// Auto-repair per spec.md §4.4: a stale recording is cleaned up
		// on the next state-mutating command.
		_ = store.RemovePID(spec.Name)
		_ = store.RemoveTime(spec.Name)
	}

	if err := store.EnsureLayout(); err != nil {
		return Outcome{}, &pmoerrors.IOError{Op: "ensure layout", Err: err}
	}

	logs := store.Logs(spec.Name)
	outFile, err := os.OpenFile(logs.Out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Outcome{}, &pmoerrors.SpawnFailed{Name: spec.Name, Reason: fmt.Errorf("open stdout log: %w", err)}
	}
	defer outFile.Close()
	errFile, err := os.OpenFile(logs.Err, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Outcome{}, &pmoerrors.SpawnFailed{Name: spec.Name, Reason: fmt.Errorf("open stderr log: %w", err)}
	}
	defer errFile.Close()
	devNull, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return Outcome{}, &pmoerrors.SpawnFailed{Name: spec.Name, Reason: fmt.Errorf("open null stdin: %w", err)}
	}
	defer devNull.Close()

	cmd := exec.Command("/bin/sh", "-c", spec.Cmd)
	cmd.Dir = spec.Cwd
	cmd.Env = spec.Env
	cmd.Stdout = outFile
	cmd.Stderr = errFile
	cmd.Stdin = devNull
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return Outcome{}, &pmoerrors.SpawnFailed{Name: spec.Name, Reason: err}
	}
	// The child now owns its own lifetime; releasing it here avoids
	// leaking a *os.Process reference and matches the detached-process
	// model where the supervisor does not Wait() on its children.
	pid = cmd.Process.Pid
	_ = cmd.Process.Release()

	now := strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 6, 64)
	if err := state.WriteAtomic(store.TimePath(spec.Name), []byte(now)); err != nil {
		return Outcome{PID: pid}, &pmoerrors.IOError{Op: "write time file", Err: err}
	}

	if restart {
		n, _ := store.ReadRestarts(spec.Name)
		if err := state.WriteAtomic(store.RestartsPath(spec.Name), []byte(strconv.Itoa(n+1))); err != nil {
			return Outcome{PID: pid}, &pmoerrors.IOError{Op: "write restarts file", Err: err}
		}
	}

	if err := state.WriteAtomic(store.PIDPath(spec.Name), []byte(strconv.Itoa(pid))); err != nil {
		return Outcome{PID: pid}, &pmoerrors.IOError{Op: "write pid file", Err: err}
	}

	return Outcome{PID: pid}, nil
}
