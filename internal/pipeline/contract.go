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

	"github.com/pkg/errors"
)

var (
	// ErrPrecondition is returned when a step is scheduled before the
	// artifacts it requires exist.
	ErrPrecondition = errors.New("step precondition not met")
	// ErrContractViolation is returned when a step's update touches fields
	// outside its declared Produces set.
	ErrContractViolation = errors.New("step contract violated")
	// ErrTransitionLimit is returned when a run exceeds MaxTransitions.
	ErrTransitionLimit = errors.New("transition limit exceeded")
	// ErrNoStep is returned when the policy routes to a stage with no step.
	ErrNoStep = errors.New("no step registered for stage")
)

// Contract is a static declaration of what a step reads and writes.
type Contract struct {
	Requires Field
	Produces Field
}

// Step is one unit of work in a run. Run receives a private copy of the
// state and answers with the fields it changed.
type Step interface {
	Name() string
	Contract() Contract
	Run(ctx context.Context, st *RunState) (*Update, error)
}

func checkPrecondition(step Step, st *RunState) error {
	if missing := st.Missing(step.Contract().Requires); missing != 0 {
		return errors.Wrapf(ErrPrecondition, "missing %s", missing)
	}
	return nil
}

func checkProduces(step Step, u *Update) error {
	if extra := u.Fields() &^ step.Contract().Produces; extra != 0 {
		return errors.Wrapf(ErrContractViolation, "unexpected fields %s", extra)
	}
	return nil
}
