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
	"strings"
)

// Field is a bit set naming RunState fields. Contracts and updates are
// compared with it.
type Field uint16

const (
	FieldRequirements Field = 1 << iota
	FieldSchema
	FieldCode
	FieldFeedback
	FieldIterations
	FieldStatus
	FieldOutputDir
	FieldTestStatus
	FieldTestLog
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldRequirements, "requirements"},
	{FieldSchema, "schema"},
	{FieldCode, "code"},
	{FieldFeedback, "feedback"},
	{FieldIterations, "iterations"},
	{FieldStatus, "status"},
	{FieldOutputDir, "output_dir"},
	{FieldTestStatus, "test_status"},
	{FieldTestLog, "test_log"},
}

// Has reports whether every bit of o is set in f.
func (f Field) Has(o Field) bool { return f&o == o }

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range fieldNames {
		if f&fn.f != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// Update is the partial state a step returns. Nil pointers and zero values
// leave the corresponding RunState field untouched.
type Update struct {
	Schema *string
	Code   *string

	// ResetFeedback clears the list before Feedback items are appended.
	ResetFeedback bool
	Feedback      []string

	IterationDelta int

	Status     *RunStatus
	OutputDir  *string
	TestStatus *TestStatus
	TestLog    *string
}

// Ptr returns a pointer to v, for filling Update fields.
func Ptr[T any](v T) *T { return &v }

// Fields returns the set of fields u touches.
func (u *Update) Fields() Field {
	if u == nil {
		return 0
	}
	var f Field
	if u.Schema != nil {
		f |= FieldSchema
	}
	if u.Code != nil {
		f |= FieldCode
	}
	if u.ResetFeedback || len(u.Feedback) > 0 {
		f |= FieldFeedback
	}
	if u.IterationDelta != 0 {
		f |= FieldIterations
	}
	if u.Status != nil {
		f |= FieldStatus
	}
	if u.OutputDir != nil {
		f |= FieldOutputDir
	}
	if u.TestStatus != nil {
		f |= FieldTestStatus
	}
	if u.TestLog != nil {
		f |= FieldTestLog
	}
	return f
}

// Apply merges u into s. Text and scalars are last-write-wins, the
// iteration counter is advanced by IterationDelta and feedback goes through
// MergeFeedback. Every schema or code replacement is recorded as a revision.
//
// After the merge an approved status never coexists with feedback: if
// items remain, the status falls back to pending.
func (s *RunState) Apply(u *Update) {
	if u == nil {
		return
	}
	s.Iterations += u.IterationDelta
	if u.Schema != nil {
		s.Schema = *u.Schema
		s.Revisions = append(s.Revisions, NewSnapshot(KindSchema, s.Iterations, s.Schema))
	}
	if u.Code != nil {
		s.Code = *u.Code
		s.Revisions = append(s.Revisions, NewSnapshot(KindCode, s.Iterations, s.Code))
	}
	if u.ResetFeedback || len(u.Feedback) > 0 {
		s.Feedback = MergeFeedback(s.Feedback, u.ResetFeedback, u.Feedback)
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.OutputDir != nil {
		s.OutputDir = *u.OutputDir
	}
	if u.TestStatus != nil {
		s.TestStatus = *u.TestStatus
	}
	if u.TestLog != nil {
		s.TestLog = *u.TestLog
	}
	if s.Status == StatusApproved && len(s.Feedback) > 0 {
		s.Status = StatusPending
	}
}

// MergeFeedback returns the feedback list after a merge. With reset the
// current items are dropped first. Blank and duplicate items are skipped;
// order of first appearance is kept. The result is never nil.
func MergeFeedback(current []string, reset bool, items []string) []string {
	out := make([]string, 0, len(current)+len(items))
	seen := make(map[string]bool, cap(out))
	add := func(it string) {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			return
		}
		seen[it] = true
		out = append(out, it)
	}
	if !reset {
		for _, it := range current {
			add(it)
		}
	}
	for _, it := range items {
		add(it)
	}
	return out
}
