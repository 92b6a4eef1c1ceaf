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
	"fmt"
	"log"

	"github.com/urfave/cli/v2"

	"cirello.io/pmo/internal/stopper"
)

func restartCommand() *cli.Command {
	return &cli.Command{
		Name:      "restart",
		Usage:     "stop then start one, several, or all services",
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
				outcome, err := stopper.Restart(store, spec, c.Duration("timeout"))
				if err != nil {
					log.Printf("%s: %v", spec.Name, err)
					failures++
					continue
				}
				fmt.Printf("%s: restarted (pid %d)\n", spec.Name, outcome.PID)
			}
			return partialResult(len(targets), failures)
		},
	}
}
