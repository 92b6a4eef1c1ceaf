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

package main

import (
	"log"
	"strconv"

	"github.com/urfave/cli/v2"

	"cirello.io/pmo/internal/config"
	"cirello.io/pmo/internal/pmoctx"
	"cirello.io/pmo/internal/pmoerrors"
	"cirello.io/pmo/internal/state"
)

// exitCode is the §6 exit-code taxonomy: 0 success, 1 descriptor/IO error,
// 2 unknown service name, 3 partial failure.
type exitCode int

const (
	exitOK             exitCode = 0
	exitConfigOrIO     exitCode = 1
	exitUnknownService exitCode = 2
	exitPartial        exitCode = 3
)

// cliError carries the exit code alongside the human message, the way
// urfave/cli expects via cli.ExitCoder.
type cliError struct {
	code exitCode
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) ExitCode() int { return int(e.code) }
func (e *cliError) Unwrap() error { return e.err }

func exitCodeOf(err error) int {
	if e, ok := err.(interface{ ExitCode() int }); ok {
		return e.ExitCode()
	}
	return int(exitConfigOrIO)
}

// loadContext opens the descriptor and the state store for one CLI
// invocation, the shared preamble every command needs.
func loadContext(c *cli.Context) (config.Set, *state.Store, error) {
	pctx := pmoctx.New()
	if root := c.String("data-root"); root != "" {
		pctx = pctx.WithDataRoot(root)
	}

	set, warnings, err := config.Load(pctx, c.String("file"), c.String("env"))
	if err != nil {
		return config.Set{}, nil, &cliError{code: exitConfigOrIO, err: &pmoerrors.ConfigError{Path: c.String("file"), Err: err}}
	}
	for _, w := range warnings {
		logWarning(w.String())
	}

	store, err := state.Open(pctx)
	if err != nil {
		return config.Set{}, nil, &cliError{code: exitConfigOrIO, err: err}
	}
	if err := store.EnsureLayout(); err != nil {
		return config.Set{}, nil, &cliError{code: exitConfigOrIO, err: err}
	}
	return set, store, nil
}

// resolveTargets implements the CLI surface's "all | name | numeric id"
// addressing mode from spec.md §6, against the ids assigned by the
// descriptor's (sorted, deterministic) iteration order.
func resolveTargets(set config.Set, arg string) ([]config.ServiceSpec, error) {
	if arg == "" || arg == "all" {
		return set.Services, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if spec, ok := set.ByIndex(n); ok {
			return []config.ServiceSpec{spec}, nil
		}
		return nil, &pmoerrors.UnknownService{Name: arg}
	}
	if spec, ok := set.ByName(arg); ok {
		return []config.ServiceSpec{spec}, nil
	}
	return nil, &pmoerrors.UnknownService{Name: arg}
}

func logWarning(msg string) {
	log.Println("warning:", msg)
}
