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

package probe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"cirello.io/pmo/internal/pmoctx"
	"cirello.io/pmo/internal/state"
)

func testStore(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	pctx := pmoctx.New().WithDataRoot(filepath.Join(dir, ".pmo"))
	pctx.Hostname = func() (string, error) { return "testhost", nil }
	s, err := state.Open(pctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLivenessStoppedWhenNoPIDFile(t *testing.T) {
	s := testStore(t)
	st, pid, err := Liveness(s, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if st != Stopped || pid != 0 {
		t.Fatalf("want Stopped/0, got %v/%d", st, pid)
	}
}

func TestLivenessStaleWhenPIDDead(t *testing.T) {
	s := testStore(t)
	if err := state.WriteAtomic(s.PIDPath("x"), []byte("999999")); err != nil {
		t.Fatal(err)
	}
	st, pid, err := Liveness(s, "x")
	if err != nil {
		t.Fatal(err)
	}
	if st != Stale || pid != 999999 {
		t.Fatalf("want Stale/999999, got %v/%d", st, pid)
	}
}

func TestLivenessRepairsMalformedPIDFile(t *testing.T) {
	s := testStore(t)
	if err := state.WriteAtomic(s.PIDPath("corrupt"), []byte("not-a-pid")); err != nil {
		t.Fatal(err)
	}
	if err := state.WriteAtomic(s.TimePath("corrupt"), []byte("123.0")); err != nil {
		t.Fatal(err)
	}

	st, pid, err := Liveness(s, "corrupt")
	if err != nil {
		t.Fatal(err)
	}
	if st != Stopped || pid != 0 {
		t.Fatalf("want Stopped/0, got %v/%d", st, pid)
	}

	if _, err := s.ReadPID("corrupt"); !os.IsNotExist(err) {
		t.Fatalf("want pid file removed, got err=%v", err)
	}
	if _, err := s.ReadStartTime("corrupt"); !os.IsNotExist(err) {
		t.Fatalf("want time file removed, got err=%v", err)
	}
}

func TestLivenessRunningForRealProcess(t *testing.T) {
	cmd := exec.Command("sleep", "2")
	if err := cmd.Start(); err != nil {
		t.Skip("sleep not available:", err)
	}
	defer cmd.Process.Kill()
	defer cmd.Wait()

	s := testStore(t)
	if err := state.WriteAtomic(s.TimePath("real"), []byte(fmt.Sprintf("%f", float64(cmd.Process.Pid)*0+nowSeconds()))); err != nil {
		t.Fatal(err)
	}
	if err := state.WriteAtomic(s.PIDPath("real"), []byte(fmt.Sprintf("%d", cmd.Process.Pid))); err != nil {
		t.Fatal(err)
	}

	st, pid, err := Liveness(s, "real")
	if err != nil {
		t.Fatal(err)
	}
	if st != Running || pid != cmd.Process.Pid {
		t.Fatalf("want Running/%d, got %v/%d", cmd.Process.Pid, st, pid)
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func TestMemHuman(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{2048, "2.0KB"},
		{5 * 1024 * 1024, "5.0MB"},
	}
	for _, c := range cases {
		row := Row{MemRSS: c.in}
		if got := row.MemHuman(); got != c.want {
			t.Errorf("humanBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStatusStoppedServiceHasNoMetrics(t *testing.T) {
	s := testStore(t)
	row, err := Status(s, "never-started")
	if err != nil {
		t.Fatal(err)
	}
	if row.State != Stopped {
		t.Fatalf("want Stopped, got %v", row.State)
	}
	if row.CPUPercent != 0 || row.MemRSS != 0 {
		t.Fatalf("expected zero metrics for a stopped service, got %+v", row)
	}
}
