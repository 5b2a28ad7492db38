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

// Package steps holds the five stage executors of a generation run:
// schema design, code generation, review, integration and test execution.
package steps

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/internal/runner"
	"github.com/cloudwego/archgen/llm"
	"github.com/cloudwego/archgen/llm/prompt"
)

// sampling temperatures per role
const (
	architectTemperature = 0.2
	developerTemperature = 0.2
	reviewerTemperature  = 0.1
	testerTemperature    = 0.1
)

type Options struct {
	Client  *llm.Client
	Prompts *prompt.Store // nil means the embedded prompts

	// ArchitectTools are offered to the schema designer.
	ArchitectTools []tool.InvokableTool
	MaxToolRounds  int

	Runner      runner.Runner
	NPM         string        // default: npm
	TestTimeout time.Duration // reported in timeout messages, default: runner.DefaultTimeout
	// TestsDisabled turns the test stage into a skip.
	TestsDisabled bool
}

func (o *Options) prompts() *prompt.Store {
	if o.Prompts == nil {
		return prompt.Default()
	}
	return o.Prompts
}

func (o *Options) npm() string {
	if o.NPM == "" {
		return "npm"
	}
	return o.NPM
}

func (o *Options) testTimeout() time.Duration {
	if o.TestTimeout <= 0 {
		return runner.DefaultTimeout
	}
	return o.TestTimeout
}

// New returns the step of every non-terminal stage.
func New(opts Options) map[pipeline.Stage]pipeline.Step {
	o := &opts
	return map[pipeline.Stage]pipeline.Step{
		pipeline.StageArchitecting: &Architect{opts: o},
		pipeline.StageDeveloping:   &Developer{opts: o},
		pipeline.StageReviewing:    &Reviewer{opts: o},
		pipeline.StageIntegrating:  &Integrator{},
		pipeline.StageTesting:      &Tester{opts: o},
	}
}

func render(store *prompt.Store, n prompt.Name, data any) ([]*schema.Message, error) {
	m, err := store.Render(n, data)
	if err != nil {
		return nil, err
	}
	return []*schema.Message{schema.SystemMessage(m.System), schema.UserMessage(m.User)}, nil
}

func complete(ctx context.Context, c *llm.Client, msgs []*schema.Message, temperature float32) (string, error) {
	out, err := c.Generate(ctx, msgs, model.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	return out.Content, nil
}
