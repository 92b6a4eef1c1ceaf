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
	"strings"

	"github.com/urfave/cli/v2"

	"cirello.io/pmo/internal/probe"
)

func lsCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "ls",
		Aliases: []string{"ps"},
		Usage:   "list every declared service with its current status",
		Action: func(c *cli.Context) error {
			set, store, err := loadContext(c)
			if err != nil {
				return err
			}

			fmt.Printf("%-4s %-16s %-8s %8s %10s %6s %8s %-9s %s\n",
				"ID", "NAME", "STATE", "PID", "UPTIME", "CPU%", "MEM", "GPU", "USER")
			var failures int
			for i, spec := range set.Services {
				row, err := probe.Status(store, spec.Name)
				if err != nil {
					fmt.Printf("%-4d %-16s %s\n", i, spec.Name, err)
					failures++
					continue
				}
				fmt.Printf("%-4d %-16s %-8s %8s %10s %5.1f%% %8s %-9s %s\n",
					i, spec.Name, row.State,
					pidOrDash(row.PID), uptimeOrDash(row),
					row.CPUPercent, memOrDash(row),
					gpuOrDash(row.GPUIDs), userOrDash(row.User))
			}
			return partialResult(len(set.Services), failures)
		},
	}
	return cmd
}

func pidOrDash(pid int) string {
	if pid == 0 {
		return "-"
	}
	return fmt.Sprint(pid)
}

func uptimeOrDash(row probe.Row) string {
	if row.State != probe.Running {
		return "-"
	}
	return row.Uptime.Truncate(1e9).String()
}

func memOrDash(row probe.Row) string {
	if row.State != probe.Running {
		return "-"
	}
	return row.MemHuman()
}

func gpuOrDash(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = fmt.Sprint(id)
	}
	return strings.Join(strs, ",")
}

func userOrDash(u string) string {
	if u == "" {
		return "-"
	}
	return u
}
