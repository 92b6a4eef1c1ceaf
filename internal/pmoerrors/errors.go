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

// Package pmoerrors holds the typed error taxonomy shared across the
// supervision core, so the CLI can map them to human messages and exit
// codes without string matching.
package pmoerrors

import "fmt"

// ConfigError wraps a failure to load or parse the descriptor.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UnknownService means a name or numeric id did not resolve to a declared
// service.
type UnknownService struct {
	Name string
}

func (e *UnknownService) Error() string {
	return fmt.Sprintf("unknown service: %s", e.Name)
}

// AlreadyRunning is informational: start was a no-op because the service
// was already running.
type AlreadyRunning struct {
	Name string
	PID  int
}

func (e *AlreadyRunning) Error() string {
	return fmt.Sprintf("%s already running (pid %d)", e.Name, e.PID)
}

// NotRunning is informational: stop was a no-op because the service was not
// running.
type NotRunning struct {
	Name string
}

func (e *NotRunning) Error() string {
	return fmt.Sprintf("%s not running", e.Name)
}

// SpawnFailed surfaces an exec failure, bad cwd, or permission error for a
// single service. No state files are left behind when this is returned.
type SpawnFailed struct {
	Name   string
	Reason error
}

func (e *SpawnFailed) Error() string {
	return fmt.Sprintf("%s: spawn failed: %v", e.Name, e.Reason)
}

func (e *SpawnFailed) Unwrap() error { return e.Reason }

// StopTimeout means SIGTERM did not terminate the tree within the timeout
// and SIGKILL was used to finish the job. It is a warning, not a failure.
type StopTimeout struct {
	Name    string
	Timeout string
}

func (e *StopTimeout) Error() string {
	return fmt.Sprintf("%s: did not stop within %s, escalated to SIGKILL", e.Name, e.Timeout)
}

// UnkillableDescendant means at least one descendant process survived the
// SIGKILL settle window. It is a warning, not a failure.
type UnkillableDescendant struct {
	Name string
	PID  int
}

func (e *UnkillableDescendant) Error() string {
	return fmt.Sprintf("%s: descendant pid %d survived SIGKILL", e.Name, e.PID)
}

// StateCorruption means the pid file was present but unparseable or pointed
// at a recycled PID. It is auto-repaired by deletion.
type StateCorruption struct {
	Name   string
	Detail string
}

func (e *StateCorruption) Error() string {
	return fmt.Sprintf("%s: state corruption: %s", e.Name, e.Detail)
}

// IOError is an unexpected filesystem failure unrelated to the shapes
// above; it aborts the command.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
