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

package probe

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// gpuUsage is a best-effort adapter around the nvidia-smi CLI: no NVML
// binding appears anywhere in the retrieved corpus, so (per spec.md's own
// framing of GPU stat collection as "a thin adapter around a mature
// tool") this shells out the same way the rest of the system shells out to
// /bin/sh. Absence of the binary, or any parse failure, yields zero values
// and no error: GPU attribution is optional everywhere it is reported.
func gpuUsage(pids []int32) (memMB uint64, ids []int, err error) {
	if len(pids) == 0 {
		return 0, nil, nil
	}
	if _, lookErr := exec.LookPath("nvidia-smi"); lookErr != nil {
		return 0, nil, nil
	}

	wanted := make(map[int32]bool, len(pids))
	for _, p := range pids {
		wanted[p] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, runErr := exec.CommandContext(ctx, "nvidia-smi",
		"--query-compute-apps=pid,used_memory,gpu_uuid",
		"--format=csv,noheader,nounits").Output()
	if runErr != nil {
		return 0, nil, nil
	}

	idxOut, _ := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=index,uuid", "--format=csv,noheader").Output()
	uuidToIdx := parseGPUIndex(string(idxOut))

	seenIdx := make(map[int]bool)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}
		pid, convErr := strconv.Atoi(strings.TrimSpace(fields[0]))
		if convErr != nil || !wanted[int32(pid)] {
			continue
		}
		used, convErr := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
		if convErr == nil {
			memMB += used
		}
		uuid := strings.TrimSpace(fields[2])
		if idx, ok := uuidToIdx[uuid]; ok && !seenIdx[idx] {
			seenIdx[idx] = true
			ids = append(ids, idx)
		}
	}
	return memMB, ids, nil
}

func parseGPUIndex(csv string) map[string]int {
	out := make(map[string]int)
	for _, line := range strings.Split(csv, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(fields[1])] = idx
	}
	return out
}
