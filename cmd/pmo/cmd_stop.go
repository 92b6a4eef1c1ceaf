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
	"cirello.io/pmo/internal/stopper"
)

func stopCommand() *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "stop one, several, or all running services",
		ArgsUsage: "all | name | numeric-id",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: stopper.DefaultTimeout,
				Usage: "grace period between SIGTERM and SIGKILL",
			},
		},
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
				err := stopper.Stop(store, spec.Name, c.Duration("timeout"))
				switch {
				case err == nil:
					fmt.Printf("%s: stopped\n", spec.Name)
				case errors.As(err, new(*pmoerrors.NotRunning)):
					fmt.Printf("%s: not running\n", spec.Name)
				case isWarningOnly(err):
					fmt.Printf("%s: stopped (%v)\n", spec.Name, err)
				default:
					log.Printf("%s: %v", spec.Name, err)
					failures++
				}
			}
			return partialResult(len(targets), failures)
		},
	}
}

// isWarningOnly reports the error shapes that spec.md §7 classifies as
// warnings rather than command failures: the stop still happened.
func isWarningOnly(err error) bool {
	var timeout *pmoerrors.StopTimeout
	var unkillable *pmoerrors.UnkillableDescendant
	return errors.As(err, &timeout) || errors.As(err, &unkillable)
}
