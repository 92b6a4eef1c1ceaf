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

	"github.com/urfave/cli/v2"
)

func dryRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "dry-run",
		Usage:     "print the resolved command, cwd, and environment without spawning anything",
		ArgsUsage: "all | name | numeric-id",
		Action: func(c *cli.Context) error {
			set, _, err := loadContext(c)
			if err != nil {
				return err
			}
			targets, err := resolveTargets(set, c.Args().First())
			if err != nil {
				return &cliError{code: exitUnknownService, err: err}
			}

			for i, spec := range targets {
				fmt.Printf("[%d] %s\n", i, spec.Name)
				fmt.Printf("    cmd: %s\n", spec.Cmd)
				cwd := spec.Cwd
				if cwd == "" {
					cwd = "(inherited)"
				}
				fmt.Printf("    cwd: %s\n", cwd)
				fmt.Println("    env:")
				for _, kv := range spec.Env {
					fmt.Printf("      %s\n", kv)
				}
			}
			return nil
		},
	}
}
