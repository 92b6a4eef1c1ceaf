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

package tail

import (
	"fmt"
	"os"
	"strings"

	terminal "github.com/buildkite/terminal-to-html/v3"

	"cirello.io/pmo/internal/state"
)

// SnapshotHTML renders a service's current stdout and stderr logs to ANSI-aware
// HTML, the same renderer the teacher's web log viewer uses for its
// browser-facing "mode=html" stream. It is a point-in-time read, not a
// follow: the caller gets back the whole file as it stood at call time.
func SnapshotHTML(store *state.Store, name string) (string, error) {
	logs := store.Logs(name)

	var b strings.Builder
	for _, section := range []struct {
		title string
		path  string
	}{
		{"stdout", logs.Out},
		{"stderr", logs.Err},
	} {
		data, err := os.ReadFile(section.path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		fmt.Fprintf(&b, "<h2>%s: %s</h2>\n", name, section.title)
		b.Write(terminal.Render(data))
		b.WriteString("\n")
	}
	return b.String(), nil
}
