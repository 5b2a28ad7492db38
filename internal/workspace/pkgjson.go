// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// PackageJSON is the project descriptor of generated Node.js backends.
const PackageJSON = "package.json"

// TestSetup is what the descriptor must declare before tests can run.
type TestSetup struct {
	TestScript      string
	DevDependencies map[string]string
}

// DefaultTestSetup wires Jest and supertest.
func DefaultTestSetup() TestSetup {
	return TestSetup{
		TestScript: "jest --forceExit --detectOpenHandles",
		DevDependencies: map[string]string{
			"jest":      "*",
			"supertest": "*",
		},
	}
}

// PatchPackageJSON adds the test script and dev dependencies that are
// missing from data. Existing values are never overwritten, so patching the
// result again returns it unchanged.
func PatchPackageJSON(data []byte, setup TestSetup) ([]byte, bool, error) {
	if !gjson.ValidBytes(data) {
		return nil, false, errors.New("package.json is not valid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, false, errors.New("package.json is not a JSON object")
	}

	out := data
	changed := false
	set := func(path, value string) error {
		if gjson.GetBytes(out, path).Exists() {
			return nil
		}
		next, err := sjson.SetBytes(out, path, value)
		if err != nil {
			return errors.Wrapf(err, "set %s", path)
		}
		out, changed = next, true
		return nil
	}

	if setup.TestScript != "" {
		if err := set("scripts.test", setup.TestScript); err != nil {
			return nil, false, err
		}
	}
	deps := make([]string, 0, len(setup.DevDependencies))
	for dep := range setup.DevDependencies {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	for _, dep := range deps {
		if err := set("devDependencies."+escapeKey(dep), setup.DevDependencies[dep]); err != nil {
			return nil, false, err
		}
	}

	if !changed {
		return data, false, nil
	}
	return pretty.PrettyOptions(out, &pretty.Options{Width: 80, Indent: "  "}), true, nil
}

// PatchPackageJSONFile applies PatchPackageJSON to dir/package.json in place.
func PatchPackageJSONFile(dir string, setup TestSetup) (bool, error) {
	path := filepath.Join(dir, PackageJSON)
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrap(err, "read package.json")
	}
	out, changed, err := PatchPackageJSON(data, setup)
	if err != nil || !changed {
		return false, err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return false, errors.Wrap(err, "write package.json")
	}
	return true, nil
}

// escapeKey makes a package name usable as a single gjson/sjson path
// component ("@types/jest", "lodash.merge").
func escapeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '.', '*', '?', '@', '|', '#', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
