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

//go:build !windows
// +build !windows

package process

import (
	"os/exec"
	"syscall"
)

// detach makes cmd the leader of a brand new session, which per setsid(2)
// also makes it the leader of a brand new process group equal to its own
// pid. That single group id is what the Stop Controller signals with
// killpg to reach the whole descendant tree, the same pattern the teacher
// uses in internal/runner/cmd_others.go (there via Setpgid, here via the
// stronger Setsid so the child also detaches from the controlling
// terminal, per spec.md §4.2).
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
