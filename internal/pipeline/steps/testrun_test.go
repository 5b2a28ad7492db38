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

package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/internal/runner"
)

// project lays out a minimal generated backend in a fresh directory.
func project(t *testing.T) (*pipeline.RunState, string) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"name": "blog", "scripts": {"start": "node server.js"}}`)
	writeFile(t, filepath.Join(dir, "server.js"), "module.exports = require('express')();\n")
	writeFile(t, filepath.Join(dir, "schema.sql"), "CREATE TABLE posts (id UUID PRIMARY KEY);")
	st := pipeline.NewRunState("a blog", dir)
	st.Schema = "CREATE TABLE posts (id UUID PRIMARY KEY);"
	st.Code = generatedCode
	return st, dir
}

func newTester(rm *roleModel, r runner.Runner) *Tester {
	return New(Options{Client: rm.client(), Runner: r})[pipeline.StageTesting].(*Tester)
}

func TestTester_Passed(t *testing.T) {
	st, dir := project(t)
	rm := newRoleModel(map[string][]string{roleTester: {generatedTests}})
	r := &fakeRunner{results: map[string][]*runner.Result{
		"test": {{Outcome: runner.OutcomeSuccess, Stdout: "Tests: 5 passed"}},
	}}

	u, err := newTester(rm, r).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.TestPassed, *u.TestStatus)
	assert.Equal(t, pipeline.StatusApproved, *u.Status)
	assert.Equal(t, "Tests: 5 passed", *u.TestLog)
	assert.True(t, u.ResetFeedback)
	assert.Empty(t, u.Feedback)
	assert.Equal(t, []string{"npm install", "npm test"}, r.calls)

	assert.FileExists(t, filepath.Join(dir, "__tests__", "posts.test.js"))
	pkg, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(pkg), "jest --forceExit --detectOpenHandles")
	assert.Contains(t, string(pkg), "supertest")
	assert.Contains(t, string(pkg), "node server.js")

	user := rm.prompts[roleTester][0]
	assert.Contains(t, user, "// server.js\nmodule.exports")
	assert.Contains(t, user, "// package.json\n")
	assert.NotContains(t, user, "// schema.sql")
	assert.Contains(t, user, "  - schema.sql\n")
	assert.NotContains(t, user, "Test Failure Output")
}

func TestTester_Failed(t *testing.T) {
	st, _ := project(t)
	rm := newRoleModel(map[string][]string{roleTester: {generatedTests}})
	r := &fakeRunner{results: map[string][]*runner.Result{
		"test": {{Outcome: runner.OutcomeNonZero, ExitCode: 1, Stdout: "FAIL __tests__/posts.test.js\n", Stderr: "AssertionError: expected 200"}},
	}}

	u, err := newTester(rm, r).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.TestFailed, *u.TestStatus)
	assert.Equal(t, pipeline.StatusPending, *u.Status)
	assert.Equal(t, "FAIL __tests__/posts.test.js\nAssertionError: expected 200", *u.TestLog)
	require.Len(t, u.Feedback, 1)
	assert.True(t, u.ResetFeedback)
	assert.Contains(t, u.Feedback[0], "[TEST FAILURE] Jest test failures:\n")
	assert.Contains(t, u.Feedback[0], "AssertionError")
}

func TestTester_TestTimeout(t *testing.T) {
	st, _ := project(t)
	rm := newRoleModel(map[string][]string{roleTester: {generatedTests}})
	r := &fakeRunner{results: map[string][]*runner.Result{
		"test": {{Outcome: runner.OutcomeTimeout, ExitCode: -1}},
	}}

	u, err := newTester(rm, r).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.TestFailed, *u.TestStatus)
	assert.Equal(t, "npm test timed out after 120 seconds.", *u.TestLog)
	assert.Equal(t, []string{"[TEST FAILURE] npm test timed out after 120 seconds."}, u.Feedback)
}

func TestTester_PreviousFailure(t *testing.T) {
	st, _ := project(t)
	st.TestStatus = pipeline.TestFailed
	st.TestLog = "AssertionError: expected 404"
	rm := newRoleModel(map[string][]string{roleTester: {generatedTests}})

	_, err := newTester(rm, &fakeRunner{}).Run(context.Background(), st)
	require.NoError(t, err)
	user := rm.prompts[roleTester][0]
	assert.Contains(t, user, "## Test Failure Output (MUST FIX ALL)")
	assert.Contains(t, user, "AssertionError: expected 404")
}

func TestTester_Skipped(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) *pipeline.RunState
		install *runner.Result
		log     string
		calls   []string
		prompts int
	}{
		{
			name: "missing output dir",
			setup: func(t *testing.T) *pipeline.RunState {
				return pipeline.NewRunState("a blog", filepath.Join(t.TempDir(), "absent"))
			},
			log: "Output directory not found.",
		},
		{
			name: "no package.json",
			setup: func(t *testing.T) *pipeline.RunState {
				return pipeline.NewRunState("a blog", t.TempDir())
			},
			log: "No package.json found in output directory.",
		},
		{
			name:    "npm missing",
			setup:   func(t *testing.T) *pipeline.RunState { st, _ := project(t); return st },
			install: &runner.Result{Outcome: runner.OutcomeNotFound, ExitCode: -1},
			log:     "npm not found — skipping tests.",
			calls:   []string{"npm install"},
			prompts: 1,
		},
		{
			name:    "install timeout",
			setup:   func(t *testing.T) *pipeline.RunState { st, _ := project(t); return st },
			install: &runner.Result{Outcome: runner.OutcomeTimeout, ExitCode: -1},
			log:     "npm install timed out — skipping tests.",
			calls:   []string{"npm install"},
			prompts: 1,
		},
		{
			name:    "install failed",
			setup:   func(t *testing.T) *pipeline.RunState { st, _ := project(t); return st },
			install: &runner.Result{Outcome: runner.OutcomeNonZero, ExitCode: 1, Stderr: "ERESOLVE"},
			log:     "npm install failed:\nERESOLVE",
			calls:   []string{"npm install"},
			prompts: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newRoleModel(map[string][]string{roleTester: {generatedTests}})
			r := &fakeRunner{results: map[string][]*runner.Result{}}
			if tt.install != nil {
				r.results["install"] = []*runner.Result{tt.install}
			}
			st := tt.setup(t)
			st.Feedback = []string{"kept"}

			u, err := newTester(rm, r).Run(context.Background(), st)
			require.NoError(t, err)
			assert.Equal(t, pipeline.TestSkipped, *u.TestStatus)
			assert.Equal(t, tt.log, *u.TestLog)
			assert.Nil(t, u.Status)
			assert.Equal(t, pipeline.FieldTestStatus|pipeline.FieldTestLog, u.Fields())
			assert.Equal(t, tt.calls, r.calls)
			assert.Len(t, rm.prompts[roleTester], tt.prompts)
		})
	}
}

func TestTester_Disabled(t *testing.T) {
	st, _ := project(t)
	rm := newRoleModel(nil)
	r := &fakeRunner{}
	step := New(Options{Client: rm.client(), Runner: r, TestsDisabled: true})[pipeline.StageTesting]

	u, err := step.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.TestSkipped, *u.TestStatus)
	assert.Empty(t, r.calls)
	assert.Empty(t, rm.Calls())
}

func TestTester_Canceled(t *testing.T) {
	st, _ := project(t)
	rm := newRoleModel(map[string][]string{roleTester: {generatedTests}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTester(rm, &fakeRunner{}).Run(ctx, st)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTester_PatchFailed(t *testing.T) {
	st, _ := project(t)
	broken := "```json\n// package.json\n{ \"name\": \"blog\",\n```\n" + generatedTests
	rm := newRoleModel(map[string][]string{roleTester: {broken}})
	r := &fakeRunner{}

	u, err := newTester(rm, r).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.TestSkipped, *u.TestStatus)
	assert.Contains(t, *u.TestLog, "package.json could not be prepared for tests:\n")
	assert.Empty(t, r.calls)
}
