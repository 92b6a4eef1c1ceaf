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

// Package state is the State Store: a filesystem layout under a
// per-hostname subdirectory of a workspace-local data directory, holding
// the durable pid/time/restarts files and log files for each service. It
// never inspects file contents beyond the narrow pid/time/restarts format.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cirello.io/pmo/internal/pmoctx"
)

// LogPaths are the two append-only log files owned by a supervised child.
type LogPaths struct {
	Out string
	Err string
}

// Store exposes the narrow filesystem contract the rest of the core relies
// on: paths in, paths out, plus the handful of read/write helpers for the
// pid/time/restarts triple. It is the only component that inspects the
// on-disk format, and even then only as "decimal integer" or "fractional
// seconds".
type Store struct {
	Root string // <data-root>/<hostname>
}

// Open resolves the host-scoped root under pctx.DataRoot and returns a
// Store for it. It does not create any directories; call EnsureLayout for
// that.
func Open(pctx *pmoctx.Context) (*Store, error) {
	host, err := pctx.HostScope()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve host scope: %w", err)
	}
	return &Store{Root: filepath.Join(pctx.DataRoot, host)}, nil
}

// EnsureLayout idempotently creates the pids/ and logs/ subdirectories.
func (s *Store) EnsureLayout() error {
	for _, sub := range []string{"pids", "logs"} {
		if err := os.MkdirAll(filepath.Join(s.Root, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// PIDPath is the decimal-PID file for name's current generation.
func (s *Store) PIDPath(name string) string {
	return filepath.Join(s.Root, "pids", name+".pid")
}

// TimePath is the fractional-seconds-since-epoch start time file for name.
func (s *Store) TimePath(name string) string {
	return filepath.Join(s.Root, "pids", name+".time")
}

// RestartsPath is the non-negative-integer restart counter file for name.
func (s *Store) RestartsPath(name string) string {
	return filepath.Join(s.Root, "pids", name+".restarts")
}

// Logs returns the stdout/stderr log file paths for name.
func (s *Store) Logs(name string) LogPaths {
	return LogPaths{
		Out: filepath.Join(s.Root, "logs", name+"-out.log"),
		Err: filepath.Join(s.Root, "logs", name+"-error.log"),
	}
}

// ReadPID reads and parses the pid file. A missing file is reported via
// os.IsNotExist on the returned error, the caller's signal for "not
// running".
func (s *Store) ReadPID(name string) (int, error) {
	data, err := os.ReadFile(s.PIDPath(name))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%s: malformed pid file: %w", name, err)
	}
	return pid, nil
}

// ReadStartTime reads and parses the time file, in fractional seconds since
// the epoch.
func (s *Store) ReadStartTime(name string) (float64, error) {
	data, err := os.ReadFile(s.TimePath(name))
	if err != nil {
		return 0, err
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: malformed time file: %w", name, err)
	}
	return t, nil
}

// ReadRestarts reads the restart counter, defaulting to 0 when the file is
// absent.
func (s *Store) ReadRestarts(name string) (int, error) {
	data, err := os.ReadFile(s.RestartsPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%s: malformed restarts file: %w", name, err)
	}
	return n, nil
}

// WriteAtomic writes content to path via a temp file in the same directory
// followed by rename, so concurrent readers never observe a partial write.
func WriteAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// RemovePID removes the pid file. It is idempotent: removing an absent
// file is not an error.
func (s *Store) RemovePID(name string) error {
	return removeIgnoreNotExist(s.PIDPath(name))
}

// RemoveTime removes the time file, idempotently.
func (s *Store) RemoveTime(name string) error {
	return removeIgnoreNotExist(s.TimePath(name))
}

func removeIgnoreNotExist(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
