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
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/runner"
	"github.com/cloudwego/archgen/llm"
	"github.com/cloudwego/archgen/llm/llmtest"
)

const (
	roleArchitect = "architect"
	roleDeveloper = "developer"
	roleReviewer  = "reviewer"
	roleTester    = "tester"
)

func roleOf(system string) string {
	switch {
	case strings.Contains(system, "database architect"):
		return roleArchitect
	case strings.Contains(system, "backend developer"):
		return roleDeveloper
	case strings.Contains(system, "reviewer"):
		return roleReviewer
	case strings.Contains(system, "QA engineer"):
		return roleTester
	}
	return "unknown"
}

// roleModel answers each role from its own reply list; the last reply of a
// list repeats. User prompts are recorded per role.
type roleModel struct {
	*llmtest.Model
	replies map[string][]string
	prompts map[string][]string
}

func newRoleModel(replies map[string][]string) *roleModel {
	rm := &roleModel{replies: replies, prompts: map[string][]string{}}
	rm.Model = &llmtest.Model{Handler: func(_ int, in []*schema.Message, _ []*schema.ToolInfo) (*schema.Message, error) {
		role := roleOf(in[0].Content)
		rm.prompts[role] = append(rm.prompts[role], in[len(in)-1].Content)
		rs := rm.replies[role]
		if len(rs) == 0 {
			return nil, errors.Errorf("no reply for %s", role)
		}
		if len(rs) > 1 {
			rm.replies[role] = rs[1:]
		}
		return schema.AssistantMessage(rs[0], nil), nil
	}}
	return rm
}

func (rm *roleModel) client() *llm.Client {
	return testClient(rm.Model)
}

func testClient(m llm.ChatModel) *llm.Client {
	return &llm.Client{Model: m, Retries: 1, Backoff: func(int) time.Duration { return 0 }}
}

// fakeRunner answers "npm <args>" from queued results; the last result of
// a queue repeats and a missing queue means success.
type fakeRunner struct {
	results map[string][]*runner.Result
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, name string, args ...string) *runner.Result {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, name+" "+key)
	rs := f.results[key]
	if len(rs) == 0 {
		return &runner.Result{Outcome: runner.OutcomeSuccess}
	}
	if len(rs) > 1 {
		f.results[key] = rs[1:]
	}
	return rs[0]
}

const (
	fencedSchema = "```sql\nCREATE TABLE posts (\n  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),\n  title TEXT NOT NULL\n);\n```"

	generatedCode = "Here is the backend.\n\n" +
		"```json\n// package.json\n{\"name\": \"blog\", \"scripts\": {\"start\": \"node server.js\"}}\n```\n\n" +
		"```javascript\n// server.js\nconst express = require('express');\nconst app = express();\nmodule.exports = app;\n```\n"

	generatedTests = "```javascript\n// __tests__/posts.test.js\nconst request = require('supertest');\ntest('ok', () => {});\n```\n"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
