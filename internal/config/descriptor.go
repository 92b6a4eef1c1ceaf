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

// Package config is the Config Resolver: it loads a pmo.yml descriptor and
// an optional sibling .env file, and normalizes both accepted service forms
// into a uniform ServiceSpec, the way the teacher's procfile package
// normalizes a Procfile into runner.ProcessType values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"cirello.io/pmo/internal/pmoctx"
)

// ServiceSpec is the normalized declaration of one service.
type ServiceSpec struct {
	// Name is unique within a descriptor and never equal to the reserved
	// token.
	Name string

	// Cmd is interpreted by /bin/sh -c, so pipelines, redirects, heredocs
	// and multi-line continuations all work the way a user expects from a
	// shell.
	Cmd string

	// Cwd is resolved relative to the descriptor's directory when
	// relative; empty means inherit the supervisor's working directory.
	Cwd string

	// Env is the effective environment: parent process environment,
	// overlaid by the dotenv layer, overlaid by this spec's own env
	// block. Later entries win per key.
	Env []string
}

// Set is a normalized collection of services sorted by name, indexable by
// the CLI's numeric positional ids in that sorted order. The order in which
// keys appear in the descriptor file is not kept.
type Set struct {
	Services []ServiceSpec
	Dir      string // descriptor's directory, for relative cwd resolution
}

// ByName returns the service with the given name, if declared.
func (s Set) ByName(name string) (ServiceSpec, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceSpec{}, false
}

// ByIndex returns the service at the given zero-based positional index,
// matching the CLI's "numeric id" addressing mode.
func (s Set) ByIndex(i int) (ServiceSpec, bool) {
	if i < 0 || i >= len(s.Services) {
		return ServiceSpec{}, false
	}
	return s.Services[i], true
}

// Warning is a non-fatal normalization note (e.g. a reserved or malformed
// key that was skipped).
type Warning struct {
	Key     string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Key, w.Message)
}

// Load reads descriptorPath (default pmo.yml) and the sibling dotenv file
// at envPath (default .env next to the descriptor), and returns the
// normalized service Set plus any non-fatal warnings.
//
// A malformed or non-mapping descriptor yields a *pmoerrors-shaped error
// via ConfigError from the caller's perspective: Load itself just returns
// (Set{}, nil, err) and lets the CLI wrap it.
func Load(pctx *pmoctx.Context, descriptorPath, envPath string) (Set, []Warning, error) {
	data, err := os.ReadFile(descriptorPath)
	if err != nil {
		return Set{}, nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Set{}, nil, fmt.Errorf("descriptor is not a valid mapping: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	dir := filepath.Dir(descriptorPath)
	if envPath == "" {
		envPath = filepath.Join(dir, ".env")
	}
	dotenv, err := loadDotEnv(envPath)
	if err != nil {
		return Set{}, nil, err
	}

	// Deterministic order: YAML mapping order isn't preserved by
	// map[string]any, so sort keys. This makes "numeric id" addressing
	// stable across runs for a given descriptor, which is what users of a
	// dev tool expect even though spec.md only requires "iteration order
	// of the descriptor" without mandating insertion order.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []Warning
	seen := make(map[string]struct{})
	var out Set
	out.Dir = dir

	for _, key := range keys {
		if key == pmoctx.ReservedName {
			warnings = append(warnings, Warning{Key: key, Message: "reserved name, skipped"})
			continue
		}
		if key == "" {
			warnings = append(warnings, Warning{Key: key, Message: "empty name, skipped"})
			continue
		}

		value := raw[key]
		spec, ok, warn := normalizeValue(key, value)
		if warn.Message != "" {
			warnings = append(warnings, warn)
		}
		if !ok {
			continue
		}

		if _, dup := seen[spec.Name]; dup {
			warnings = append(warnings, Warning{Key: key, Message: "duplicate name, skipped"})
			continue
		}
		seen[spec.Name] = struct{}{}

		spec.Cwd = resolveCwd(dir, spec.Cwd)
		spec.Env = mergeEnv(os.Environ(), dotenv, spec.Env)
		out.Services = append(out.Services, spec)
	}

	return out, warnings, nil
}

// normalizeValue applies step 2 of spec.md §4.1: a string value is
// shorthand for {cmd: <string>}; a mapping reads cmd/script/cwd/env and
// ignores unknown keys; anything else is discarded with a warning.
func normalizeValue(name string, value any) (ServiceSpec, bool, Warning) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ServiceSpec{}, false, Warning{Key: name, Message: "empty command, skipped"}
		}
		return ServiceSpec{Name: name, Cmd: v}, true, Warning{}
	case map[string]any:
		cmd, _ := v["cmd"].(string)
		if cmd == "" {
			// legacy alias
			cmd, _ = v["script"].(string)
		}
		if cmd == "" {
			return ServiceSpec{}, false, Warning{Key: name, Message: "missing cmd, skipped"}
		}
		cwd, _ := v["cwd"].(string)
		spec := ServiceSpec{Name: name, Cmd: cmd, Cwd: cwd}
		if rawEnv, ok := v["env"].(map[string]any); ok {
			keys := make([]string, 0, len(rawEnv))
			for k := range rawEnv {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				spec.Env = append(spec.Env, fmt.Sprintf("%s=%v", k, rawEnv[k]))
			}
		}
		return spec, true, Warning{}
	default:
		return ServiceSpec{}, false, Warning{Key: name, Message: "neither a string nor a mapping, skipped"}
	}
}

func resolveCwd(descriptorDir, cwd string) string {
	if cwd == "" {
		return ""
	}
	if filepath.IsAbs(cwd) {
		return cwd
	}
	return filepath.Join(descriptorDir, cwd)
}

// mergeEnv implements spec.md §4.1 step 4: parent ⊕ dotenv ⊕ spec env,
// later wins per key.
func mergeEnv(parent []string, dotenv *DotEnv, specEnv []string) []string {
	merged := make(map[string]string, len(parent)+len(dotenv.Keys())+len(specEnv))
	var order []string

	add := func(kv string) {
		key, val, ok := splitKV(kv)
		if !ok {
			return
		}
		if _, exists := merged[key]; !exists {
			order = append(order, key)
		}
		merged[key] = val
	}

	for _, kv := range parent {
		add(kv)
	}
	for _, k := range dotenv.Keys() {
		v, _ := dotenv.Lookup(k)
		add(k + "=" + v)
	}
	for _, kv := range specEnv {
		add(kv)
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+merged[k])
	}
	return out
}

func splitKV(kv string) (key, val string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
