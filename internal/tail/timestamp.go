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
	"strings"
	"time"
)

// timestampLayouts are tried in order against the start of a line. They
// cover plain ISO 8601 and the bracketed variant many process supervisors
// (including the teacher's own prefixedPrinter output) tend to emit.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

// splitTimestamp extracts a recognizable leading timestamp from line, in
// plain or bracketed form, and returns the remaining content. ok is false
// when no recognizable timestamp is present, in which case the caller is
// expected to synthesize one from the wall clock at read time.
func splitTimestamp(line string) (ts time.Time, content string, ok bool) {
	candidate := line
	bracketed := false
	if strings.HasPrefix(line, "[") {
		if end := strings.Index(line, "]"); end > 0 {
			candidate = line[1:end]
			bracketed = true
		}
	}

	for _, layout := range timestampLayouts {
		head := candidate
		if strings.Contains(layout, "T") {
			// A "Z" offset is shorter than the layout's Z07:00, so an ISO
			// 8601 timestamp is taken to end at the first space.
			head, _, _ = strings.Cut(candidate, " ")
		} else if len(candidate) >= len(layout) {
			head = candidate[:len(layout)]
		} else {
			continue
		}
		parsed, err := time.Parse(layout, head)
		if err != nil {
			continue
		}
		if bracketed {
			rest := strings.TrimPrefix(line[strings.Index(line, "]")+1:], " ")
			return parsed, rest, true
		}
		rest := strings.TrimPrefix(candidate[len(head):], " ")
		return parsed, rest, true
	}
	return time.Time{}, line, false
}
