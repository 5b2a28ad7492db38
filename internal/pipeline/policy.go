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

// Transition reasons.
const (
	ReasonNext          = "next"
	ReasonApproved      = "approved"
	ReasonFeedback      = "feedback"
	ReasonMaxIterations = "max-iterations"
	ReasonTestsPassed   = "tests-passed"
	ReasonTestsFailed   = "tests-failed"
	ReasonTestsSkipped  = "tests-skipped"
)

// Transition is one edge taken by a run.
type Transition struct {
	From   Stage  `json:"from"`
	To     Stage  `json:"to"`
	Reason string `json:"reason"`
}

// Policy decides where a run goes after each stage, and settles the final
// status once the run reaches StageTerminal.
type Policy interface {
	Next(from Stage, st *RunState) Transition
	Finalize(st *RunState)
}

// DefaultPolicy is architect, developer, reviewer, then integration and
// testing, looping back to the developer on feedback until MaxIterations.
type DefaultPolicy struct {
	MaxIterations int
}

func (p *DefaultPolicy) max() int {
	if p == nil || p.MaxIterations <= 0 {
		return MaxIterations
	}
	return p.MaxIterations
}

func (p *DefaultPolicy) Next(from Stage, st *RunState) Transition {
	switch from {
	case StageArchitecting:
		return Transition{From: from, To: StageDeveloping, Reason: ReasonNext}
	case StageDeveloping:
		return Transition{From: from, To: StageReviewing, Reason: ReasonNext}
	case StageReviewing:
		return AfterReview(st, p.max())
	case StageIntegrating:
		return Transition{From: from, To: StageTesting, Reason: ReasonNext}
	case StageTesting:
		return AfterTesting(st, p.max())
	default:
		return Transition{From: from, To: StageTerminal, Reason: ReasonNext}
	}
}

// Finalize settles the status of a run that reached StageTerminal.
// Passing tests always approve. A still pending run becomes
// max_iterations_reached when the bound was hit and unresolved otherwise.
func (p *DefaultPolicy) Finalize(st *RunState) {
	if st.TestStatus == TestPassed {
		st.Status = StatusApproved
		st.Feedback = []string{}
		return
	}
	if st.Status != StatusPending {
		return
	}
	if st.Iterations >= p.max() {
		st.Status = StatusMaxIterations
	} else {
		st.Status = StatusUnresolved
	}
}

// AfterReview routes a reviewed run. Hitting the iteration bound wins over
// outstanding feedback.
func AfterReview(st *RunState, max int) Transition {
	t := Transition{From: StageReviewing, To: StageIntegrating}
	switch {
	case len(st.Feedback) == 0:
		t.Reason = ReasonApproved
	case st.Iterations >= max:
		t.Reason = ReasonMaxIterations
	default:
		t.To, t.Reason = StageDeveloping, ReasonFeedback
	}
	return t
}

// AfterTesting routes a tested run. Only a failed test run with iterations
// left goes back to the developer.
func AfterTesting(st *RunState, max int) Transition {
	t := Transition{From: StageTesting, To: StageTerminal}
	switch {
	case st.TestStatus == TestPassed:
		t.Reason = ReasonTestsPassed
	case st.TestStatus != TestFailed:
		t.Reason = ReasonTestsSkipped
	case st.Iterations >= max:
		t.Reason = ReasonMaxIterations
	default:
		t.To, t.Reason = StageDeveloping, ReasonTestsFailed
	}
	return t
}
