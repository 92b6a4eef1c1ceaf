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

// Package probe is the Status Probe: given recorded state, it determines
// whether a service is running, stopped, or stale, and reports uptime,
// CPU, RSS, and optional GPU attribution, cross-checking the State Store
// against the operating system the way Nomad's UniversalExecutor.pidStats
// cross-checks recorded pids against gopsutil.
package probe

import (
	"fmt"
	"log"
	"os"
	"os/user"
	"strconv"
	"syscall"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"cirello.io/pmo/internal/pmoerrors"
	"cirello.io/pmo/internal/state"
)

// State is the three-way status a service can be reported in.
type State string

// Possible states of a service.
const (
	Running State = "running"
	Stopped State = "stopped"
	Stale   State = "stale"
)

// staleTolerance bounds how far a live process's observed start time may
// drift from the recorded time_file before it is treated as a recycled
// PID rather than the supervised generation.
const staleTolerance = 2 * time.Second

// Row is one line of `pmo ls` output.
type Row struct {
	Name         string
	State        State
	PID          int
	Uptime       time.Duration
	RestartCount int
	CPUPercent   float64
	MemRSS       uint64
	GPUMemMB     uint64
	GPUIDs       []int
	User         string
}

// MemHuman formats MemRSS as an SI-ish human string (B/KB/MB/GB).
func (r Row) MemHuman() string { return humanBytes(r.MemRSS) }

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	suffix := "KMGTPE"[exp]
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), suffix)
}

// Liveness is the narrow, metrics-free check the Process Runner and Stop
// Controller use to decide whether a service is currently running. It is a
// cheaper subset of Status: no CPU/mem/GPU sampling, just the
// running/stopped/stale determination.
func Liveness(store *state.Store, name string) (st State, pid int, err error) {
	pid, readErr := store.ReadPID(name)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return Stopped, 0, nil
		}
		_ = store.RemovePID(name)
		_ = store.RemoveTime(name)
		log.Printf("warning: %s", &pmoerrors.StateCorruption{Name: name, Detail: readErr.Error()})
		return Stopped, 0, nil
	}

	if !isAlive(pid) {
		return Stale, pid, nil
	}

	recordedStart, timeErr := store.ReadStartTime(name)
	if timeErr == nil {
		if proc, err := gopsprocess.NewProcess(int32(pid)); err == nil {
			if createMS, err := proc.CreateTime(); err == nil {
				observed := float64(createMS) / 1000.0
				if diff := observed - recordedStart; diff > staleTolerance.Seconds() || diff < -staleTolerance.Seconds() {
					return Stale, pid, nil
				}
			}
		}
	}

	return Running, pid, nil
}

// isAlive reports whether pid names a live process, using signal 0 which
// performs no actual delivery (see kill(2)).
func isAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Status produces the full Row for one service, including CPU/mem/GPU
// aggregation across the process tree rooted at the recorded PID.
func Status(store *state.Store, name string) (Row, error) {
	row := Row{Name: name}

	st, pid, err := Liveness(store, name)
	if err != nil {
		return row, err
	}
	row.State = st
	row.PID = pid

	if restarts, err := store.ReadRestarts(name); err == nil {
		row.RestartCount = restarts
	}

	if st != Running {
		return row, nil
	}

	if start, err := store.ReadStartTime(name); err == nil {
		row.Uptime = time.Since(time.Unix(0, int64(start*float64(time.Second))))
	}

	tree := processTree(pid)
	var totalCPU float64
	var totalRSS uint64
	for _, p := range tree {
		if pct, err := p.CPUPercent(); err == nil {
			totalCPU += pct
		}
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			totalRSS += mi.RSS
		}
	}
	row.CPUPercent = totalCPU
	row.MemRSS = totalRSS

	if len(tree) > 0 {
		if uids, err := tree[0].Uids(); err == nil && len(uids) > 0 {
			if u, err := user.LookupId(strconv.Itoa(int(uids[0]))); err == nil {
				row.User = u.Username
			}
		}
	}

	pids := make([]int32, 0, len(tree))
	for _, p := range tree {
		pids = append(pids, p.Pid)
	}
	if mem, ids, err := gpuUsage(pids); err == nil {
		row.GPUMemMB = mem
		row.GPUIDs = ids
	}

	return row, nil
}

// processTree walks the process table for pid and its descendants,
// best-effort, so Status can aggregate CPU, RSS, user and GPU attribution
// over the whole tree.
func processTree(pid int) []*gopsprocess.Process {
	root, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	tree := []*gopsprocess.Process{root}

	all, err := gopsprocess.Processes()
	if err != nil {
		return tree
	}
	byParent := make(map[int32][]*gopsprocess.Process)
	for _, p := range all {
		if ppid, err := p.Ppid(); err == nil {
			byParent[ppid] = append(byParent[ppid], p)
		}
	}

	queue := []int32{int32(pid)}
	seen := map[int32]bool{int32(pid): true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range byParent[cur] {
			if seen[child.Pid] {
				continue
			}
			seen[child.Pid] = true
			tree = append(tree, child)
			queue = append(queue, child.Pid)
		}
	}
	return tree
}
