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
	"strings"
)

const fence = "```"

// StripFence removes a wrapping code fence and its language tag from s.
// When s does not start with a fence but contains one, the body of the
// first fenced block is returned.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) {
		if m := blockRe.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[2])
		}
		return s
	}

	rest := s[len(fence):]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		if tag := strings.TrimSpace(rest[:i]); !strings.ContainsAny(tag, " \t") {
			rest = rest[i+1:]
		}
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, fence)
	return strings.TrimSpace(rest)
}
