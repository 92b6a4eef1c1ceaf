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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"cirello.io/pmo/internal/tail"
)

func logCommand() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "follow a service's (or every service's) stdout and stderr",
		ArgsUsage: "all | name | numeric-id",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "n",
				Aliases: []string{"lines"},
				Value:   15,
				Usage:   "number of trailing lines to show before following",
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

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			names := make([]string, 0, len(targets))
			for _, spec := range targets {
				names = append(names, spec.Name)
			}

			var lines <-chan tail.Line
			if len(names) == 1 {
				lines, err = tail.Follow(ctx, store, names[0], c.Int("n"))
			} else {
				lines, err = tail.FollowAll(ctx, store, names, c.Int("n"))
			}
			if err != nil {
				return &cliError{code: exitConfigOrIO, err: err}
			}

			for line := range lines {
				streamTag := "out"
				if line.Stream == tail.Stderr {
					streamTag = "err"
				}
				fmt.Printf("%s %-10s %s| %s\n", line.Timestamp.Format("15:04:05.000"), line.Service, streamTag, line.Content)
			}
			return nil
		},
	}
}
