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

// Command pmo is a developer-facing process supervisor: it starts, stops,
// restarts, and tails a small set of long-running commands declared in a
// pmo.yml descriptor, tracking them via pid files rather than keeping a
// supervising daemon alive.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("pmo: ")

	app := &cli.App{
		Name:                 "pmo",
		Usage:                "start, stop, and watch a handful of long-running dev processes",
		HideVersion:          true,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Value:   "pmo.yml",
				Usage:   "descriptor `file` to read service declarations from",
			},
			&cli.StringFlag{
				Name:  "env",
				Value: "",
				Usage: "dotenv `file` to load (defaults to .env next to the descriptor)",
			},
			&cli.StringFlag{
				Name:  "data-root",
				Value: "",
				Usage: "override the .pmo state directory root",
			},
		},
		Commands: []*cli.Command{
			startCommand(),
			stopCommand(),
			restartCommand(),
			logCommand(),
			flushCommand(),
			dryRunCommand(),
			lsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pmo:", err)
		os.Exit(exitCodeOf(err))
	}
}
