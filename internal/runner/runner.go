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

// Package runner executes external commands with a timeout and classifies
// how they ended.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/log"
)

// Outcome is how a command ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeNonZero  Outcome = "non-zero"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeNotFound Outcome = "not-found"
	// OutcomeError covers start failures other than a missing executable.
	OutcomeError Outcome = "error"
)

// Result is the captured outcome of one command.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// Combined is stdout followed by stderr.
func (r *Result) Combined() string {
	return r.Stdout + r.Stderr
}

// Runner runs name with args inside dir.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) *Result
}

// ExecRunner runs real processes.
type ExecRunner struct {
	// Timeout bounds each Run; zero means DefaultTimeout.
	Timeout time.Duration
	// Env, when set, replaces the inherited environment.
	Env []string
}

// DefaultTimeout is the per-command bound of the test harness.
const DefaultTimeout = 120 * time.Second

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner returns a runner with the given timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements Runner.
func (e *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) *Result {
	start := time.Now()
	res := &Result{}

	path, err := exec.LookPath(name)
	if err != nil {
		res.Outcome = OutcomeNotFound
		res.ExitCode = -1
		res.Err = errors.Wrapf(err, "%s not found", name)
		return res
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	if e.Env != nil {
		cmd.Env = e.Env
	}

	log.Debug("Executing: %s %v (dir: %s, timeout: %v)", name, args, dir, timeout)
	err = cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		res.Outcome = OutcomeTimeout
		res.ExitCode = -1
		res.Err = fmt.Errorf("%s timed out after %v", name, timeout)
	case err == nil:
		res.Outcome = OutcomeSuccess
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Outcome = OutcomeNonZero
			res.ExitCode = exitErr.ExitCode()
		} else if errors.Is(err, exec.ErrNotFound) {
			res.Outcome = OutcomeNotFound
			res.ExitCode = -1
		} else {
			res.Outcome = OutcomeError
			res.ExitCode = -1
		}
		res.Err = err
	}
	log.Debug("%s %v finished: outcome=%s exit=%d duration=%v", name, args, res.Outcome, res.ExitCode, res.Duration)
	return res
}
