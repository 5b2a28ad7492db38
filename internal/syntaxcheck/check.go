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

// Package syntaxcheck finds syntax errors in generated JavaScript and JSON
// files. It never fails a run; callers log what it reports.
package syntaxcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/tidwall/gjson"
)

const maxProblems = 20

// Problem is one syntax error.
type Problem struct {
	File    string
	Line    int // 1-based
	Column  int // 0-based
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", p.File, p.Line, p.Column, p.Message)
}

// Supported reports whether name has a checked extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js", ".mjs", ".cjs", ".json":
		return true
	}
	return false
}

// Check parses src according to the extension of name.
func Check(ctx context.Context, name string, src []byte) ([]Problem, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		if gjson.ValidBytes(src) {
			return nil, nil
		}
		return []Problem{{File: name, Line: 1, Message: "invalid JSON"}}, nil
	}
	return CheckJS(ctx, name, src)
}

// CheckJS parses src as JavaScript and reports ERROR and MISSING nodes.
func CheckJS(ctx context.Context, name string, src []byte) ([]Problem, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	var out []Problem
	collect(root, name, src, &out, 0)
	return out, nil
}

func collect(node *sitter.Node, name string, src []byte, out *[]Problem, depth int) {
	if depth > 1000 || len(*out) >= maxProblems {
		return
	}
	if node.IsError() || node.IsMissing() {
		p := node.StartPoint()
		msg := "syntax error"
		if node.IsMissing() {
			msg = "missing " + node.Type()
		} else if s, e := node.StartByte(), node.EndByte(); e > s && int(e) <= len(src) && e-s < 60 {
			msg = fmt.Sprintf("unexpected %q", string(src[s:e]))
		}
		*out = append(*out, Problem{File: name, Line: int(p.Row) + 1, Column: int(p.Column), Message: msg})
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collect(node.Child(i), name, src, out, depth+1)
	}
}

// CheckFiles checks every supported file among files, relative to root.
// Unreadable files are reported as problems.
func CheckFiles(ctx context.Context, root string, files []string) ([]Problem, error) {
	var out []Problem
	for _, f := range files {
		if !Supported(f) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			out = append(out, Problem{File: f, Message: err.Error()})
			continue
		}
		ps, err := Check(ctx, f, src)
		if err != nil {
			return out, err
		}
		out = append(out, ps...)
	}
	return out, nil
}
