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
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/codeblock"
	"github.com/cloudwego/archgen/internal/log"
	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/internal/runner"
	"github.com/cloudwego/archgen/internal/workspace"
	"github.com/cloudwego/archgen/llm/prompt"
)

// FailurePrefix marks feedback items that come from a failed test run.
const FailurePrefix = "[TEST FAILURE] "

const (
	msgNoOutputDir   = "Output directory not found."
	msgNoPackageJSON = "No package.json found in output directory."
	msgNoNPM         = "npm not found — skipping tests."
	msgInstallTime   = "npm install timed out — skipping tests."
	msgInstallFailed = "npm install failed:\n"
	msgDisabled      = "Test execution disabled."
	msgPatchFailed   = "package.json could not be prepared for tests:\n"
)

// Tester generates a Jest suite for the written project, installs its
// dependencies and runs it. Environment problems skip the stage; test
// failures become feedback for the next code generation.
type Tester struct {
	opts *Options
}

func (t *Tester) Name() string { return "tester" }

func (t *Tester) Contract() pipeline.Contract {
	return pipeline.Contract{
		Requires: pipeline.FieldCode,
		Produces: pipeline.FieldTestStatus | pipeline.FieldTestLog | pipeline.FieldFeedback | pipeline.FieldStatus,
	}
}

func (t *Tester) Run(ctx context.Context, st *pipeline.RunState) (*pipeline.Update, error) {
	dir := st.OutputDir
	if t.opts.TestsDisabled {
		return skipped(msgDisabled), nil
	}
	if dir == "" || !workspace.IsDir(dir) {
		return skipped(msgNoOutputDir), nil
	}
	if _, err := os.Stat(filepath.Join(dir, workspace.PackageJSON)); err != nil {
		return skipped(msgNoPackageJSON), nil
	}

	if err := t.generate(ctx, st, dir); err != nil {
		return nil, err
	}
	if _, err := workspace.PatchPackageJSONFile(dir, workspace.DefaultTestSetup()); err != nil {
		return skipped(msgPatchFailed + err.Error()), nil
	}

	npm := t.opts.npm()
	log.Info("[tester] running %s install in %s", npm, dir)
	res := t.opts.Runner.Run(ctx, dir, npm, "install")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch res.Outcome {
	case runner.OutcomeSuccess:
	case runner.OutcomeNotFound:
		return skipped(msgNoNPM), nil
	case runner.OutcomeTimeout:
		return skipped(msgInstallTime), nil
	default:
		return skipped(msgInstallFailed + res.Stderr), nil
	}

	log.Info("[tester] running %s test", npm)
	res = t.opts.Runner.Run(ctx, dir, npm, "test")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch res.Outcome {
	case runner.OutcomeSuccess:
		log.Info("[tester] tests passed")
		return &pipeline.Update{
			TestStatus:    pipeline.Ptr(pipeline.TestPassed),
			TestLog:       pipeline.Ptr(res.Stdout),
			Status:        pipeline.Ptr(pipeline.StatusApproved),
			ResetFeedback: true,
		}, nil
	case runner.OutcomeNotFound:
		return skipped(msgNoNPM), nil
	case runner.OutcomeTimeout:
		msg := fmt.Sprintf("npm test timed out after %d seconds.", int(t.opts.testTimeout().Seconds()))
		log.Error("[tester] %s", msg)
		return failed(msg, FailurePrefix+msg), nil
	default:
		out := res.Combined()
		log.Error("[tester] tests failed (exit %d)", res.ExitCode)
		return failed(out, FailurePrefix+"Jest test failures:\n"+out), nil
	}
}

// generate asks the model for a test suite and writes it next to the code.
func (t *Tester) generate(ctx context.Context, st *pipeline.RunState, dir string) error {
	files, err := workspace.ListFiles(dir)
	if err != nil {
		return errors.Wrapf(err, "list %s", dir)
	}
	sources, err := inlineSources(dir, files)
	if err != nil {
		return err
	}
	data := prompt.TesterData{Schema: st.Schema, Sources: sources, Files: files}
	if st.TestStatus == pipeline.TestFailed {
		data.Failure = st.TestLog
	}
	msgs, err := render(t.opts.prompts(), prompt.Tester, data)
	if err != nil {
		return err
	}
	log.Info("[tester] generating tests for %d file(s)", len(files))
	reply, err := complete(ctx, t.opts.Client, msgs, testerTemperature)
	if err != nil {
		return err
	}

	written, rejected, err := workspace.WriteFiles(ctx, codeblock.Extract(reply), workspace.WriteOptions{OutputDir: dir})
	if err != nil {
		return errors.Wrap(err, "write tests")
	}
	for _, p := range rejected {
		log.Error("[tester] refused to write %q outside %s", p, dir)
	}
	log.Info("[tester] wrote %d test file(s)", len(written))
	return nil
}

// inlineSources renders the .js and .json files of dir as
// "// path\ncontent" blocks separated by blank lines. The npm lockfile is
// left out.
func inlineSources(dir string, files []string) (string, error) {
	var parts []string
	for _, f := range files {
		if path.Base(f) == "package-lock.json" {
			continue
		}
		switch path.Ext(f) {
		case ".js", ".json":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f)))
		if err != nil {
			return "", errors.Wrapf(err, "read %s", f)
		}
		parts = append(parts, "// "+f+"\n"+string(data))
	}
	return strings.Join(parts, "\n\n"), nil
}

func skipped(msg string) *pipeline.Update {
	log.Info("[tester] %s", msg)
	return &pipeline.Update{
		TestStatus: pipeline.Ptr(pipeline.TestSkipped),
		TestLog:    pipeline.Ptr(msg),
	}
}

func failed(testLog, item string) *pipeline.Update {
	return &pipeline.Update{
		TestStatus:    pipeline.Ptr(pipeline.TestFailed),
		TestLog:       pipeline.Ptr(testLog),
		Status:        pipeline.Ptr(pipeline.StatusPending),
		ResetFeedback: true,
		Feedback:      []string{item},
	}
}
