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

	"github.com/cloudwego/eino/components/model"

	"github.com/cloudwego/archgen/internal/codeblock"
	"github.com/cloudwego/archgen/internal/log"
	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/llm/prompt"
)

// Architect designs the PostgreSQL schema from the requirements. It may
// consult the architect tools for a bounded number of rounds.
type Architect struct {
	opts *Options
}

func (a *Architect) Name() string { return "architect" }

func (a *Architect) Contract() pipeline.Contract {
	return pipeline.Contract{
		Requires: pipeline.FieldRequirements,
		Produces: pipeline.FieldSchema,
	}
}

func (a *Architect) Run(ctx context.Context, st *pipeline.RunState) (*pipeline.Update, error) {
	log.Info("[architect] designing database schema...")
	msgs, err := render(a.opts.prompts(), prompt.Architect, prompt.ArchitectData{
		Requirements: st.Requirements,
		HasTools:     len(a.opts.ArchitectTools) > 0,
	})
	if err != nil {
		return nil, err
	}
	res, err := a.opts.Client.RunToolLoop(ctx, msgs, a.opts.ArchitectTools, a.opts.MaxToolRounds,
		model.WithTemperature(architectTemperature))
	if err != nil {
		return nil, err
	}
	for _, ex := range res.Exchanges {
		log.Debug("[architect] round %d: %s(%s)", ex.Round, ex.Call.Function.Name, ex.Call.Function.Arguments)
	}
	if res.Exhausted {
		log.Info("[architect] tool rounds exhausted, answered from collected findings")
	}

	ddl := codeblock.StripFence(res.Content)
	log.Info("[architect] schema generated (%d chars, %d tool calls)", len(ddl), len(res.Exchanges))
	return &pipeline.Update{Schema: pipeline.Ptr(ddl)}, nil
}
