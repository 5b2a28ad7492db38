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

package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultMaxTransitions caps the number of stage transitions per run.
const DefaultMaxTransitions = 64

// Pipeline drives a RunState through its stages. It is the only writer of
// the state: each step works on a copy and its Update is merged only when
// the step succeeds.
type Pipeline struct {
	Steps          map[Stage]Step
	Policy         Policy
	Observer       Observer
	MaxTransitions int
}

// Run executes stages starting at st.Stage (StageArchitecting when unset)
// until the policy reaches StageTerminal.
//
// On a step failure nothing from that step is merged, the status becomes
// unresolved and the last committed state is returned with the error.
func (p *Pipeline) Run(ctx context.Context, st *RunState) (*RunState, error) {
	if st == nil {
		return nil, errors.New("nil run state")
	}
	if p.Policy == nil {
		p.Policy = &DefaultPolicy{MaxIterations: MaxIterations}
	}
	if p.Observer == nil {
		p.Observer = NopObserver{}
	}
	limit := p.MaxTransitions
	if limit <= 0 {
		limit = DefaultMaxTransitions
	}
	if st.Feedback == nil {
		st.Feedback = []string{}
	}
	if st.Status == "" {
		st.Status = StatusPending
	}

	stage := st.Stage
	if stage == "" {
		stage = StageArchitecting
	}
	for n := 0; stage != StageTerminal; n++ {
		st.Stage = stage
		if n >= limit {
			return p.abort(ctx, st, errors.Wrapf(ErrTransitionLimit, "%d transitions", limit))
		}
		if err := ctx.Err(); err != nil {
			return p.abort(ctx, st, err)
		}
		step, ok := p.Steps[stage]
		if !ok {
			return p.abort(ctx, st, errors.Wrapf(ErrNoStep, "%s", stage))
		}
		if err := p.runStep(ctx, stage, step, st); err != nil {
			return p.abort(ctx, st, errors.Wrapf(err, "step %s", step.Name()))
		}
		t := p.Policy.Next(stage, st)
		p.Observer.OnTransition(ctx, t, st)
		stage = t.To
	}

	st.Stage = StageTerminal
	p.Policy.Finalize(st)
	p.Observer.OnTerminate(ctx, st, nil)
	return st, nil
}

func (p *Pipeline) runStep(ctx context.Context, stage Stage, step Step, st *RunState) error {
	rec := StepRecord{
		Step:      step.Name(),
		Stage:     stage,
		Iteration: st.Iterations,
		StartedAt: time.Now(),
	}
	p.Observer.OnStepStart(ctx, rec.Step, st)

	u, err := p.execute(ctx, step, st)
	rec.EndedAt = time.Now()
	if err != nil {
		rec.Status = StepFailed
		rec.Error = err.Error()
		st.History = append(st.History, rec)
		p.Observer.OnStepEnd(ctx, rec, st)
		return err
	}

	st.Apply(u)
	rec.Status = StepOK
	st.History = append(st.History, rec)
	p.Observer.OnStepEnd(ctx, rec, st)
	return nil
}

func (p *Pipeline) execute(ctx context.Context, step Step, st *RunState) (*Update, error) {
	if err := checkPrecondition(step, st); err != nil {
		return nil, err
	}
	u, err := step.Run(ctx, st.Clone())
	if err != nil {
		return nil, err
	}
	if err := checkProduces(step, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (p *Pipeline) abort(ctx context.Context, st *RunState, err error) (*RunState, error) {
	st.Status = StatusUnresolved
	p.Observer.OnTerminate(ctx, st, err)
	return st, err
}
