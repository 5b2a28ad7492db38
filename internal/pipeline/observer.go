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

	"go.uber.org/zap"

	"github.com/cloudwego/archgen/internal/log"
)

// Observer is notified of run progress. The state passed in is the
// pipeline's own record and must not be modified.
type Observer interface {
	OnStepStart(ctx context.Context, step string, st *RunState)
	OnStepEnd(ctx context.Context, rec StepRecord, st *RunState)
	OnTransition(ctx context.Context, t Transition, st *RunState)
	OnTerminate(ctx context.Context, st *RunState, err error)
}

// NopObserver ignores everything. Embed it to implement only some hooks.
type NopObserver struct{}

func (NopObserver) OnStepStart(context.Context, string, *RunState)      {}
func (NopObserver) OnStepEnd(context.Context, StepRecord, *RunState)    {}
func (NopObserver) OnTransition(context.Context, Transition, *RunState) {}
func (NopObserver) OnTerminate(context.Context, *RunState, error)       {}

// Observers fans events out in order.
type Observers []Observer

func (obs Observers) OnStepStart(ctx context.Context, step string, st *RunState) {
	for _, o := range obs {
		o.OnStepStart(ctx, step, st)
	}
}

func (obs Observers) OnStepEnd(ctx context.Context, rec StepRecord, st *RunState) {
	for _, o := range obs {
		o.OnStepEnd(ctx, rec, st)
	}
}

func (obs Observers) OnTransition(ctx context.Context, t Transition, st *RunState) {
	for _, o := range obs {
		o.OnTransition(ctx, t, st)
	}
}

func (obs Observers) OnTerminate(ctx context.Context, st *RunState, err error) {
	for _, o := range obs {
		o.OnTerminate(ctx, st, err)
	}
}

// LogObserver writes structured progress lines through the shared logger.
type LogObserver struct{}

func (LogObserver) OnStepStart(_ context.Context, step string, st *RunState) {
	log.L().Info("step start",
		zap.String("run", st.RunID),
		zap.String("step", step),
		zap.String("stage", string(st.Stage)),
		zap.Int("iteration", st.Iterations))
}

func (LogObserver) OnStepEnd(_ context.Context, rec StepRecord, st *RunState) {
	fields := []zap.Field{
		zap.String("run", st.RunID),
		zap.String("step", rec.Step),
		zap.String("status", string(rec.Status)),
		zap.Duration("took", rec.EndedAt.Sub(rec.StartedAt)),
	}
	if rec.Status == StepFailed {
		log.L().Error("step failed", append(fields, zap.String("error", rec.Error))...)
		return
	}
	log.L().Info("step done", fields...)
}

func (LogObserver) OnTransition(_ context.Context, t Transition, st *RunState) {
	log.L().Debug("transition",
		zap.String("run", st.RunID),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("reason", t.Reason),
		zap.Int("feedback", len(st.Feedback)))
}

func (LogObserver) OnTerminate(_ context.Context, st *RunState, err error) {
	fields := []zap.Field{
		zap.String("run", st.RunID),
		zap.String("status", string(st.Status)),
		zap.Int("iterations", st.Iterations),
		zap.String("tests", string(st.TestStatus)),
	}
	if err != nil {
		log.L().Error("run aborted", append(fields, zap.Error(err))...)
		return
	}
	log.L().Info("run finished", fields...)
}
