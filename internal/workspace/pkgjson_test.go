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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPatchPackageJSON_AddsMissing(t *testing.T) {
	in := []byte(`{"name":"blog","dependencies":{"express":"^4.18.0"}}`)
	out, changed, err := PatchPackageJSON(in, DefaultTestSetup())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "jest --forceExit --detectOpenHandles", gjson.GetBytes(out, "scripts.test").String())
	assert.Equal(t, "*", gjson.GetBytes(out, "devDependencies.jest").String())
	assert.Equal(t, "*", gjson.GetBytes(out, "devDependencies.supertest").String())
	assert.Equal(t, "^4.18.0", gjson.GetBytes(out, "dependencies.express").String())
}

func TestPatchPackageJSON_KeepsExplicitValues(t *testing.T) {
	in := []byte(`{"scripts":{"test":"mocha"},"devDependencies":{"jest":"^29.0.0"}}`)
	out, changed, err := PatchPackageJSON(in, DefaultTestSetup())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "mocha", gjson.GetBytes(out, "scripts.test").String())
	assert.Equal(t, "^29.0.0", gjson.GetBytes(out, "devDependencies.jest").String())
	assert.Equal(t, "*", gjson.GetBytes(out, "devDependencies.supertest").String())
}

func TestPatchPackageJSON_Idempotent(t *testing.T) {
	inputs := [][]byte{
		[]byte(`{"name":"blog"}`),
		[]byte(`{"name":"blog","scripts":{"start":"node server.js"},"devDependencies":{}}`),
		[]byte(`{"scripts":{"test":"jest"},"devDependencies":{"jest":"*","supertest":"*"}}`),
	}
	for _, in := range inputs {
		once, _, err := PatchPackageJSON(in, DefaultTestSetup())
		require.NoError(t, err)
		twice, changed, err := PatchPackageJSON(once, DefaultTestSetup())
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, string(once), string(twice))
	}
}

func TestPatchPackageJSON_ScopedPackage(t *testing.T) {
	setup := TestSetup{DevDependencies: map[string]string{"@types/jest": "^29.0.0"}}
	out, changed, err := PatchPackageJSON([]byte(`{}`), setup)
	require.NoError(t, err)
	assert.True(t, changed)
	_, changed, err = PatchPackageJSON(out, setup)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPatchPackageJSON_Invalid(t *testing.T) {
	_, _, err := PatchPackageJSON([]byte("{not json"), DefaultTestSetup())
	assert.Error(t, err)
	_, _, err = PatchPackageJSON([]byte(`["array"]`), DefaultTestSetup())
	assert.Error(t, err)
}

func TestPatchPackageJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PackageJSON)
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"blog"}`), 0644))

	changed, err := PatchPackageJSONFile(dir, DefaultTestSetup())
	require.NoError(t, err)
	assert.True(t, changed)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	changed, err = PatchPackageJSONFile(dir, DefaultTestSetup())
	require.NoError(t, err)
	assert.False(t, changed)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
