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

// Package stopper is the Stop Controller: it implements the two-phase
// graceful stop (SIGTERM, wait, SIGKILL) against a process group, with a
// best-effort descendant walk as a safety net, the same shape as
// github.com/loykin/provisr's Manager.Stop but extended to the whole
// descendant tree per spec.md §4.3.
package stopper

import (
	"errors"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"cirello.io/pmo/internal/config"
	"cirello.io/pmo/internal/pmoerrors"
	"cirello.io/pmo/internal/probe"
	"cirello.io/pmo/internal/process"
	"cirello.io/pmo/internal/state"
)

// DefaultTimeout is T in spec.md §4.3.
const DefaultTimeout = 10 * time.Second

const (
	pollInterval = 100 * time.Millisecond
	killSettle   = 2 * time.Second
)

// Stop implements spec.md §4.3's stop(name, timeout) operation.
func Stop(store *state.Store, name string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	st, pid, err := probe.Liveness(store, name)
	if err != nil {
		return &pmoerrors.IOError{Op: "liveness check", Err: err}
	}
	switch st {
	case probe.Stopped:
		return &pmoerrors.NotRunning{Name: name}
	case probe.Stale:
		// Clean up per spec.md §4.4 and report as a no-op stop, the way
		// step 2 of §4.3 calls for treating a mismatched PID as stale.
		_ = store.RemovePID(name)
		_ = store.RemoveTime(name)
		return &pmoerrors.NotRunning{Name: name}
	}

	descendants := descendantPIDs(pid)

	_ = unix.Kill(-pid, unix.SIGTERM)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !anyAlive(pid, descendants) {
			return finish(store, name, nil)
		}
		time.Sleep(pollInterval)
	}

	timeoutErr := &pmoerrors.StopTimeout{Name: name, Timeout: timeout.String()}

	_ = unix.Kill(-pid, unix.SIGKILL)
	for _, d := range descendants {
		_ = unix.Kill(d, unix.SIGKILL)
	}

	settleDeadline := time.Now().Add(killSettle)
	var unkillable *pmoerrors.UnkillableDescendant
	for time.Now().Before(settleDeadline) {
		if !anyAlive(pid, descendants) {
			return finish(store, name, timeoutErr)
		}
		time.Sleep(pollInterval)
	}
	if alivePID, ok := firstAlive(pid, descendants); ok {
		unkillable = &pmoerrors.UnkillableDescendant{Name: name, PID: alivePID}
	}

	// Cleanup proceeds regardless: the operation still returns success for
	// cleanup purposes per spec.md §4.3 step 5.
	if err := finish(store, name, timeoutErr); err != nil {
		return err
	}
	if unkillable != nil {
		return unkillable
	}
	return timeoutErr
}

// finish removes pid_file then time_file, in that order, leaving
// restarts_file intact, and returns keep unchanged so callers can surface
// a warning alongside a successful cleanup.
func finish(store *state.Store, name string, keep error) error {
	if err := store.RemovePID(name); err != nil {
		return &pmoerrors.IOError{Op: "remove pid file", Err: err}
	}
	if err := store.RemoveTime(name); err != nil {
		return &pmoerrors.IOError{Op: "remove time file", Err: err}
	}
	return keep
}

func descendantPIDs(root int) []int {
	all, err := gopsprocess.Processes()
	if err != nil {
		return nil
	}
	byParent := make(map[int32][]int32)
	for _, p := range all {
		if ppid, err := p.Ppid(); err == nil {
			byParent[ppid] = append(byParent[ppid], p.Pid)
		}
	}
	var out []int
	queue := []int32{int32(root)}
	seen := map[int32]bool{int32(root): true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range byParent[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, int(child))
			queue = append(queue, child)
		}
	}
	return out
}

func alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

func anyAlive(leader int, descendants []int) bool {
	// A leader that has exited but is still this process's own unreaped
	// child answers signal 0 as a zombie; reap it so it counts as gone.
	_, _ = unix.Wait4(leader, nil, unix.WNOHANG, nil)
	if alive(leader) {
		return true
	}
	for _, d := range descendants {
		if alive(d) {
			return true
		}
	}
	return false
}

func firstAlive(leader int, descendants []int) (int, bool) {
	if alive(leader) {
		return leader, true
	}
	for _, d := range descendants {
		if alive(d) {
			return d, true
		}
	}
	return 0, false
}

// Restart implements spec.md §4.3's restart(name): stop then start,
// atomic from the caller's point of view. A failure of either phase is
// propagated; the restart counter only advances on the successful start
// half, via process.Start's restart=true.
//
// A not-running service is stopped-as-a-no-op (NotRunning, swallowed here
// since restarting a stopped service is meaningful) before being started
// fresh, matching the spirit of "restart" as "ensure a new generation is
// running" rather than requiring a prior live generation. StopTimeout and
// UnkillableDescendant are warnings, not failures (spec.md §7): by the time
// Stop returns either one, the process group has already been SIGKILLed and
// cleaned up, so the start half still proceeds.
func Restart(store *state.Store, spec config.ServiceSpec, timeout time.Duration) (process.Outcome, error) {
	if err := Stop(store, spec.Name, timeout); err != nil {
		var notRunning *pmoerrors.NotRunning
		var stopTimeout *pmoerrors.StopTimeout
		var unkillable *pmoerrors.UnkillableDescendant
		switch {
		case errors.As(err, &notRunning):
		case errors.As(err, &stopTimeout):
		case errors.As(err, &unkillable):
		default:
			return process.Outcome{}, err
		}
	}
	return process.Start(store, spec, true)
}
