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

package tail

import (
	"os"

	"cirello.io/pmo/internal/probe"
	"cirello.io/pmo/internal/state"
)

// Flush implements spec.md §4.5's flush(name): a running service has its
// log files truncated in place, since the child process holds them open by
// file descriptor and would keep appending to an unlinked inode otherwise;
// a stopped (or stale) service has them deleted outright.
//
// Truncating a live log leaves any in-progress Follow call reading at its
// old byte offset: it sees nothing until the file grows past that offset,
// and the lines written before then are skipped. This mirrors the caveat in spec.md §4.5 and
// is accepted rather than solved with inotify, per the polling-only design
// of this package.
func Flush(store *state.Store, name string) error {
	st, _, err := probe.Liveness(store, name)
	if err != nil {
		return err
	}
	logs := store.Logs(name)

	if st == probe.Running {
		for _, path := range []string{logs.Out, logs.Err} {
			if err := truncate(path); err != nil {
				return err
			}
		}
		return nil
	}

	for _, path := range []string{logs.Out, logs.Err} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func truncate(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return f.Close()
}
