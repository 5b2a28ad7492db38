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

	"github.com/cloudwego/archgen/internal/log"
	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/llm/prompt"
)

// Developer generates the Express backend. Every run counts as one
// iteration and consumes the pending feedback.
type Developer struct {
	opts *Options
}

func (d *Developer) Name() string { return "developer" }

func (d *Developer) Contract() pipeline.Contract {
	return pipeline.Contract{
		Requires: pipeline.FieldSchema,
		Produces: pipeline.FieldCode | pipeline.FieldIterations | pipeline.FieldFeedback,
	}
}

func (d *Developer) Run(ctx context.Context, st *pipeline.RunState) (*pipeline.Update, error) {
	log.Info("[developer] generating code (iteration %d, %d feedback items)", st.Iterations+1, len(st.Feedback))
	msgs, err := render(d.opts.prompts(), prompt.Developer, prompt.DeveloperData{
		Requirements: st.Requirements,
		Schema:       st.Schema,
		Feedback:     st.Feedback,
	})
	if err != nil {
		return nil, err
	}
	code, err := complete(ctx, d.opts.Client, msgs, developerTemperature)
	if err != nil {
		return nil, err
	}
	return &pipeline.Update{
		Code:           pipeline.Ptr(code),
		IterationDelta: 1,
		ResetFeedback:  true,
	}, nil
}
