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
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MaxIterations bounds how many times code generation may run in one run.
const MaxIterations = 3

// DefaultOutputDir is where generated files go unless configured otherwise.
const DefaultOutputDir = "./output"

// Stage names a node of the run's state machine.
type Stage string

const (
	StageArchitecting Stage = "architecting"
	StageDeveloping   Stage = "developing"
	StageReviewing    Stage = "reviewing"
	StageIntegrating  Stage = "integrating"
	StageTesting      Stage = "testing"
	StageTerminal     Stage = "terminal"
)

// RunStatus is the overall verdict of a run.
type RunStatus string

const (
	StatusPending       RunStatus = "pending"
	StatusApproved      RunStatus = "approved"
	StatusMaxIterations RunStatus = "max_iterations_reached"
	StatusUnresolved    RunStatus = "unresolved"
)

// TestStatus is the result of the latest test execution.
type TestStatus string

const (
	TestUnset   TestStatus = ""
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestSkipped TestStatus = "skipped"
)

// RunState is the single record threaded through a run. Only the Pipeline
// writes it; steps get a clone and answer with an Update.
type RunState struct {
	RunID        string `json:"run_id"`
	Requirements string `json:"requirements"`

	Schema     string     `json:"schema"`
	Code       string     `json:"code"`
	Feedback   []string   `json:"feedback"`
	Iterations int        `json:"iterations"`
	Status     RunStatus  `json:"status"`
	OutputDir  string     `json:"output_dir"`
	TestStatus TestStatus `json:"test_status,omitempty"`
	TestLog    string     `json:"test_log,omitempty"`

	// Stage is the stage being executed, or StageTerminal once the run ended.
	Stage     Stage        `json:"stage"`
	History   []StepRecord `json:"history"`
	Revisions []*Snapshot  `json:"revisions,omitempty"`
}

// StepRecord is an immutable log entry for one step execution.
type StepRecord struct {
	Step      string     `json:"step"`
	Stage     Stage      `json:"stage"`
	Iteration int        `json:"iteration"`
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// StepStatus is the outcome of a step run.
type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
)

// NewRunState returns a fresh state for requirements. An empty outputDir
// selects DefaultOutputDir.
func NewRunState(requirements, outputDir string) *RunState {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &RunState{
		RunID:        uuid.NewString(),
		Requirements: requirements,
		Feedback:     []string{},
		Status:       StatusPending,
		OutputDir:    outputDir,
		Stage:        StageArchitecting,
	}
}

// Clone returns a deep copy; snapshots are immutable and shared.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	out := *s
	out.Feedback = append([]string{}, s.Feedback...)
	out.History = append([]StepRecord(nil), s.History...)
	out.Revisions = append([]*Snapshot(nil), s.Revisions...)
	return &out
}

// Missing returns the subset of required text fields that are still empty.
func (s *RunState) Missing(required Field) Field {
	var missing Field
	check := func(f Field, v string) {
		if required.Has(f) && v == "" {
			missing |= f
		}
	}
	check(FieldRequirements, s.Requirements)
	check(FieldSchema, s.Schema)
	check(FieldCode, s.Code)
	check(FieldOutputDir, s.OutputDir)
	return missing
}

// Latest returns the newest revision of kind, or nil.
func (s *RunState) Latest(kind string) *Snapshot {
	for i := len(s.Revisions) - 1; i >= 0; i-- {
		if s.Revisions[i].Kind == kind {
			return s.Revisions[i]
		}
	}
	return nil
}

// SaveToFile writes the state as indented JSON, creating parent directories.
func (s *RunState) SaveToFile(path string) error {
	if s == nil {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal run state")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
