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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"cirello.io/pmo/internal/pmoctx"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadShorthandAndDetailedForms(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, ""+
		"web: sleep 60\n"+
		"api:\n"+
		"  cmd: echo hi\n"+
		"  cwd: sub\n"+
		"  env:\n"+
		"    FOO: bar\n")

	set, warnings, err := Load(pmoctx.New(), desc, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(set.Services) != 2 {
		t.Fatalf("want 2 services, got %d", len(set.Services))
	}

	web, ok := set.ByName("web")
	if !ok {
		t.Fatal("web not found")
	}
	wantWeb := ServiceSpec{Name: "web", Cmd: "sleep 60"}
	if diff := cmp.Diff(wantWeb, web, cmpopts.IgnoreFields(ServiceSpec{}, "Env")); diff != "" {
		t.Fatalf("web spec mismatch (-want +got):\n%s", diff)
	}

	api, ok := set.ByName("api")
	if !ok {
		t.Fatal("api not found")
	}
	wantAPI := ServiceSpec{Name: "api", Cmd: "echo hi", Cwd: filepath.Join(dir, "sub")}
	if diff := cmp.Diff(wantAPI, api, cmpopts.IgnoreFields(ServiceSpec{}, "Env")); diff != "" {
		t.Fatalf("api spec mismatch (-want +got):\n%s", diff)
	}
	foundFoo := false
	for _, kv := range api.Env {
		if kv == "FOO=bar" {
			foundFoo = true
		}
	}
	if !foundFoo {
		t.Fatalf("api env missing FOO=bar: %v", api.Env)
	}
}

func TestLoadReservedNameOnlyYieldsEmptySet(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, "pmo: echo hi\n")

	set, warnings, err := Load(pmoctx.New(), desc, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Services) != 0 {
		t.Fatalf("want empty set, got %v", set.Services)
	}
	found := false
	for _, w := range warnings {
		if w.Key == "pmo" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning mentioning pmo was skipped")
	}
}

func TestLoadReservedNameWithOtherServices(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, "pmo: echo hi\nweb: sleep 10\n")

	set, warnings, err := Load(pmoctx.New(), desc, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Services) != 1 || set.Services[0].Name != "web" {
		t.Fatalf("want only web, got %v", set.Services)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "reserved") {
		t.Fatalf("want a reserved-name warning, got %v", warnings)
	}
}

func TestLoadScriptAliasForCmd(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, "legacy:\n  script: echo old\n")

	set, _, err := Load(pmoctx.New(), desc, "")
	if err != nil {
		t.Fatal(err)
	}
	svc, ok := set.ByName("legacy")
	if !ok || svc.Cmd != "echo old" {
		t.Fatalf("script alias not honored: %+v", svc)
	}
}

func TestLoadMalformedDescriptorReturnsError(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, "- not\n- a\n- mapping\n")

	if _, _, err := Load(pmoctx.New(), desc, ""); err == nil {
		t.Fatal("expected an error for a non-mapping top level descriptor")
	}
}

func TestLoadMissingDescriptorReturnsError(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "nope.yml")
	if _, _, err := Load(pmoctx.New(), desc, ""); err == nil {
		t.Fatal("expected an error for a missing descriptor")
	}
}

func TestLoadDotenvMergePrecedence(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, "t:\n  cmd: env\n  env:\n    FOO: from-spec\n")
	writeFile(t, filepath.Join(dir, ".env"), "FOO=from-env\n")

	set, _, err := Load(pmoctx.New(), desc, "")
	if err != nil {
		t.Fatal(err)
	}
	svc, ok := set.ByName("t")
	if !ok {
		t.Fatal("t not found")
	}
	var got string
	for _, kv := range svc.Env {
		if strings.HasPrefix(kv, "FOO=") {
			got = kv
		}
	}
	if got != "FOO=from-spec" {
		t.Fatalf("want FOO=from-spec, got %q", got)
	}
}

func TestLoadMissingDotenvIsSilentlySkipped(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "pmo.yml")
	writeFile(t, desc, "web: sleep 1\n")

	if _, _, err := Load(pmoctx.New(), desc, filepath.Join(dir, ".env")); err != nil {
		t.Fatalf("missing dotenv should not fail the load: %v", err)
	}
}
