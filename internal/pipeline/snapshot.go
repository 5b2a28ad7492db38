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
	"crypto/sha256"
	"encoding/hex"
)

// Snapshot kinds.
const (
	KindSchema = "schema"
	KindCode   = "code"
)

// Snapshot is an immutable, versioned copy of an artifact. Every schema or
// code replacement appends one to RunState.Revisions.
type Snapshot struct {
	Kind      string `json:"kind"`
	Iteration int    `json:"iteration"`
	Hash      string `json:"hash"` // hex-encoded sha256 of Content
	Content   string `json:"content"`
}

// NewSnapshot creates a snapshot of content produced during iteration.
func NewSnapshot(kind string, iteration int, content string) *Snapshot {
	h := sha256.Sum256([]byte(content))
	return &Snapshot{
		Kind:      kind,
		Iteration: iteration,
		Hash:      hex.EncodeToString(h[:]),
		Content:   content,
	}
}

// Short is the first 12 hex digits of the hash.
func (s *Snapshot) Short() string {
	if len(s.Hash) < 12 {
		return s.Hash
	}
	return s.Hash[:12]
}
