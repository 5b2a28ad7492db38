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

package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Success(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(10 * time.Second)
	res := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo out; echo err 1>&2")
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, "out\nerr\n", res.Combined())
}

func TestExecRunner_NonZero(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(10 * time.Second)
	res := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo AssertionError; exit 3")
	assert.Equal(t, OutcomeNonZero, res.Outcome)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stdout, "AssertionError")
}

func TestExecRunner_NotFound(t *testing.T) {
	r := NewExecRunner(time.Second)
	res := r.Run(context.Background(), t.TempDir(), "definitely-not-a-real-binary-xyz")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Error(t, res.Err)
}

func TestExecRunner_Timeout(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(200 * time.Millisecond)
	res := r.Run(context.Background(), t.TempDir(), "sh", "-c", "exec sleep 5")
	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.Less(t, res.Duration, 5*time.Second)
}
