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

// Package tail is the Log Tailer: it follows one or more stdout/stderr
// files concurrently, without relying on inotify (a portable polling
// baseline per spec.md §9), normalizes lines with a real or synthesized
// timestamp, and emits a merged stream tagged by service name, the way the
// teacher's prefixedPrinter tags lines by process type name.
package tail

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"cirello.io/pmo/internal/state"
)

// Stream identifies which of a service's two log files a Line came from.
type Stream string

// The two streams every service has.
const (
	Stdout Stream = "out"
	Stderr Stream = "err"
)

// Line is one normalized, tagged log line.
type Line struct {
	Service     string
	Stream      Stream
	Timestamp   time.Time
	Synthesized bool
	Content     string
}

const pollInterval = 200 * time.Millisecond

// Follow implements the single-service mode of spec.md §4.5: it opens
// <name>-out.log and <name>-error.log, seeks to n lines from the end
// (n<=0 defaults to 15), and streams new lines as they arrive until ctx is
// canceled.
func Follow(ctx context.Context, store *state.Store, name string, n int) (<-chan Line, error) {
	if n <= 0 {
		n = 15
	}
	logs := store.Logs(name)
	out := make(chan Line, 64)

	var wg sync.WaitGroup
	startFollower(ctx, &wg, logs.Out, name, Stdout, n, out)
	startFollower(ctx, &wg, logs.Err, name, Stderr, n, out)

	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// FollowAll implements the all-services mode: every existing log pair for
// the given names is opened, each stream read line-by-line concurrently,
// and merged into one channel. Lines within one stream retain file order;
// order across streams is arrival-based.
func FollowAll(ctx context.Context, store *state.Store, names []string, n int) (<-chan Line, error) {
	if n <= 0 {
		n = 15
	}
	out := make(chan Line, 256)
	var wg sync.WaitGroup
	for _, name := range names {
		logs := store.Logs(name)
		if _, err := os.Stat(logs.Out); err == nil {
			startFollower(ctx, &wg, logs.Out, name, Stdout, n, out)
		}
		if _, err := os.Stat(logs.Err); err == nil {
			startFollower(ctx, &wg, logs.Err, name, Stderr, n, out)
		}
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func startFollower(ctx context.Context, wg *sync.WaitGroup, path, service string, stream Stream, n int, out chan<- Line) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer f.Close()
		followFile(ctx, f, service, stream, n, out)
	}()
}

// followFile reads the last n lines of f, emits them, then polls for
// appended content until ctx is canceled.
func followFile(ctx context.Context, f *os.File, service string, stream Stream, n int, out chan<- Line) {
	tailLines, offset := lastNLines(f, n)
	for _, l := range tailLines {
		emit(ctx, out, service, stream, l)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return
	}

	reader := bufio.NewReader(f)
	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if len(line) > 0 {
				partial.WriteString(line)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}
		full := partial.String() + strings.TrimSuffix(line, "\n")
		partial.Reset()
		emit(ctx, out, service, stream, full)
	}
}

func emit(ctx context.Context, out chan<- Line, service string, stream Stream, raw string) {
	ts, content, ok := splitTimestamp(raw)
	if !ok {
		ts = time.Now()
		content = raw
	}
	select {
	case out <- Line{Service: service, Stream: stream, Timestamp: ts, Synthesized: !ok, Content: content}:
	case <-ctx.Done():
	}
}

// lastNLines reads the tail end of f for its final n lines, and returns
// them alongside the byte offset from which following reads should
// resume (the position right after the returned lines).
func lastNLines(f *os.File, n int) ([]string, int64) {
	info, err := f.Stat()
	if err != nil {
		return nil, 0
	}
	size := info.Size()

	const chunkSize = 64 * 1024
	var data []byte
	pos := size
	lineCount := 0
	for pos > 0 && lineCount <= n {
		readSize := int64(chunkSize)
		if readSize > pos {
			readSize = pos
		}
		pos -= readSize
		buf := make([]byte, readSize)
		if _, err := f.ReadAt(buf, pos); err != nil && err != io.EOF {
			break
		}
		data = append(buf, data...)
		lineCount = strings.Count(string(data), "\n")
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, size
}
