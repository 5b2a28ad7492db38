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

// Package codeblock extracts labeled fenced code blocks from model output.
package codeblock

import (
	"regexp"
	"strings"
)

// FallbackName is the single entry returned when no block carries a filename.
const FallbackName = "server_code.md"

var (
	blockRe = regexp.MustCompile("(?s)```([^\n]*)\n(.*?)```")
	// "javascript // server.js" or "python # app.py" on the fence line
	tagFileRe = regexp.MustCompile(`(?://|#)\s*(\S+\.\S+)`)
	// "// server.js" as the first line inside the block
	commentFileRe = regexp.MustCompile(`^[ \t]*(?://|#)\s*(\S+\.\S+)\s*\n`)
)

// File is one extracted file.
type File struct {
	Path    string
	Content string
}

// Extract returns the labeled blocks of md in order of first appearance.
// A later block with the same path replaces the earlier content. Blocks
// without a recoverable filename are dropped; when nothing is left, the
// whole input is returned under FallbackName. Blank input yields nothing.
func Extract(md string) []File {
	if strings.TrimSpace(md) == "" {
		return nil
	}

	var files []File
	index := map[string]int{}
	for _, m := range blockRe.FindAllStringSubmatch(md, -1) {
		tag, body := strings.TrimSpace(m[1]), m[2]

		var name string
		if tm := tagFileRe.FindStringSubmatch(tag); tm != nil {
			name = tm[1]
		} else if cm := commentFileRe.FindStringSubmatchIndex(body); cm != nil {
			name = body[cm[2]:cm[3]]
			body = body[cm[1]:]
		}
		if name == "" {
			continue
		}

		content := strings.Trim(body, "\n")
		if i, ok := index[name]; ok {
			files[i].Content = content
			continue
		}
		index[name] = len(files)
		files = append(files, File{Path: name, Content: content})
	}

	if len(files) == 0 {
		return []File{{Path: FallbackName, Content: md}}
	}
	return files
}

// Parse is Extract as a path -> content mapping.
func Parse(md string) map[string]string {
	files := Extract(md)
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Path] = f.Content
	}
	return out
}
