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
	"os"

	"github.com/urfave/cli/v2"

	"cirello.io/pmo/internal/tail"
)

const htmlSnapshotPerm = 0o644

func flushCommand() *cli.Command {
	return &cli.Command{
		Name:      "flush",
		Usage:     "truncate (running) or delete (stopped) a service's logs",
		ArgsUsage: "all | name | numeric-id",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "html",
				Usage: "write an ANSI-rendered HTML snapshot to <name>.log.html before flushing",
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
				if c.Bool("html") {
					html, err := tail.SnapshotHTML(store, spec.Name)
					if err != nil {
						log.Printf("%s: snapshot: %v", spec.Name, err)
						failures++
						continue
					}
					htmlPath := spec.Name + ".log.html"
					if err := os.WriteFile(htmlPath, []byte(html), htmlSnapshotPerm); err != nil {
						log.Printf("%s: write %s: %v", spec.Name, htmlPath, err)
						failures++
						continue
					}
					fmt.Printf("%s: wrote %s\n", spec.Name, htmlPath)
				}
				if err := tail.Flush(store, spec.Name); err != nil {
					log.Printf("%s: %v", spec.Name, err)
					failures++
					continue
				}
				fmt.Printf("%s: flushed\n", spec.Name)
			}
			return partialResult(len(targets), failures)
		},
	}
}
