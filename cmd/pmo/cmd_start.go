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
	"errors"
	"fmt"
	"log"

	"github.com/urfave/cli/v2"

	"cirello.io/pmo/internal/pmoerrors"
	"cirello.io/pmo/internal/process"
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "start one, several, or all declared services",
		ArgsUsage: "all | name | numeric-id",
		Action: func(c *cli.Context) error {
			set, store, err := loadContext(c)
			if err != nil {
				return err
			}
			targets, err := resolveTargets(set, c.Args().First())
			if err != nil {
				return &cliError{code: exitUnknownService, err: err}
			}

			var failures int
			for _, spec := range targets {
				outcome, err := process.Start(store, spec, false)
				switch {
				case err == nil:
					fmt.Printf("%s: started (pid %d)\n", spec.Name, outcome.PID)
				case errors.As(err, new(*pmoerrors.AlreadyRunning)):
					fmt.Printf("%s: already running (pid %d)\n", spec.Name, outcome.PID)
				default:
					log.Printf("%s: %v", spec.Name, err)
					failures++
				}
			}
			return partialResult(len(targets), failures)
		},
	}
}

// partialResult maps a batch operation's failure count to spec.md §6's exit
// code 3 (partial failure) when some, but not all, targets succeeded, and
// to a plain error when none did.
func partialResult(total, failures int) error {
	if failures == 0 {
		return nil
	}
	if failures == total {
		return &cliError{code: exitConfigOrIO, err: fmt.Errorf("%d/%d targets failed", failures, total)}
	}
	return &cliError{code: exitPartial, err: fmt.Errorf("%d/%d targets failed", failures, total)}
}
