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

package codeblock

import (
	"testing"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sql fence", "```sql\nCREATE TABLE posts (id SERIAL);\n```", "CREATE TABLE posts (id SERIAL);"},
		{"bare fence", "```\nCREATE TABLE a ();\n```\n", "CREATE TABLE a ();"},
		{"postgresql tag", "  ```postgresql\nCREATE TABLE a ();\n```  ", "CREATE TABLE a ();"},
		{"no fence", "CREATE TABLE a ();", "CREATE TABLE a ();"},
		{"prose around", "Here it is:\n```sql\nCREATE TABLE a ();\n```\nDone.", "CREATE TABLE a ();"},
		{"unterminated", "```sql\nCREATE TABLE a ();", "CREATE TABLE a ();"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFence(tt.in); got != tt.want {
				t.Errorf("StripFence() = %q, want %q", got, tt.want)
			}
		})
	}
}
