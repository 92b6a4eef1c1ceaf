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

// Package pmoctx carries the paths and toggles that used to be package-level
// globals, so the core packages have no process-wide mutable state.
package pmoctx

import "os"

// DefaultDataRoot is the directory name the state tree lives under,
// relative to the current working directory, unless overridden.
const DefaultDataRoot = ".pmo"

// ReservedName is the descriptor key that is never treated as a service.
const ReservedName = "pmo"

// Context carries the paths and host resolution the rest of the core needs.
// It is constructed once by the CLI and threaded through every operation;
// nothing in the core packages reads global state.
type Context struct {
	// DataRoot is the directory under which the per-host state tree is
	// rooted. Defaults to DefaultDataRoot.
	DataRoot string

	// Hostname resolves the host scope used to partition the state tree.
	// Defaults to os.Hostname so a descriptor shared over a network
	// filesystem does not alias PIDs across machines.
	Hostname func() (string, error)
}

// New returns a Context with defaults filled in.
func New() *Context {
	return &Context{
		DataRoot: DefaultDataRoot,
		Hostname: os.Hostname,
	}
}

// WithDataRoot returns a copy of c with DataRoot overridden.
func (c *Context) WithDataRoot(root string) *Context {
	cp := *c
	cp.DataRoot = root
	return &cp
}

func (c *Context) hostname() (string, error) {
	if c.Hostname != nil {
		return c.Hostname()
	}
	return os.Hostname()
}

// HostScope resolves the per-host directory name used to partition state.
func (c *Context) HostScope() (string, error) {
	return c.hostname()
}
