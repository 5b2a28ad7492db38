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
	"strings"

	"github.com/cloudwego/archgen/internal/log"
	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/llm/prompt"
)

// Reviewer checks the generated code against the schema and either
// approves it or lists the issues to fix.
type Reviewer struct {
	opts *Options
}

func (r *Reviewer) Name() string { return "reviewer" }

func (r *Reviewer) Contract() pipeline.Contract {
	return pipeline.Contract{
		Requires: pipeline.FieldSchema | pipeline.FieldCode,
		Produces: pipeline.FieldFeedback | pipeline.FieldStatus,
	}
}

func (r *Reviewer) Run(ctx context.Context, st *pipeline.RunState) (*pipeline.Update, error) {
	log.Info("[reviewer] reviewing iteration %d", st.Iterations)
	msgs, err := render(r.opts.prompts(), prompt.Reviewer, prompt.ReviewerData{
		Schema:        st.Schema,
		Code:          st.Code,
		ApprovalToken: prompt.ApprovalToken,
	})
	if err != nil {
		return nil, err
	}
	review, err := complete(ctx, r.opts.Client, msgs, reviewerTemperature)
	if err != nil {
		return nil, err
	}

	approved, items := ParseReview(review)
	u := &pipeline.Update{ResetFeedback: true, Feedback: items}
	if approved {
		log.Info("[reviewer] code approved")
		u.Status = pipeline.Ptr(pipeline.StatusApproved)
	} else {
		log.Info("[reviewer] found %d issue(s)", len(items))
	}
	return u, nil
}

// EmptyReview is the issue recorded for a blank review reply.
const EmptyReview = "reviewer returned an empty response"

// ParseReview interprets a review reply. The approval token, compared
// case-insensitively after trimming, approves the code. Otherwise every
// line starting with a digit or a dash is an issue with its list marker
// removed; a reply without such lines is one issue as a whole, and a
// blank reply is EmptyReview.
func ParseReview(review string) (approved bool, items []string) {
	text := strings.TrimSpace(review)
	if strings.EqualFold(text, prompt.ApprovalToken) {
		return true, []string{}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !(line[0] == '-' || (line[0] >= '0' && line[0] <= '9')) {
			continue
		}
		if item := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-) ")); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		if text == "" {
			text = EmptyReview
		}
		items = []string{text}
	}
	return false, items
}
