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

//go:build windows
// +build windows

package process

import "os/exec"

// detach is a no-op on Windows: the POSIX process-group protocol this
// supervisor relies on for graceful stop (killpg on SIGTERM/SIGKILL) has
// no equivalent here. Windows is explicitly out of scope per spec.md §9.
func detach(cmd *exec.Cmd) {}
