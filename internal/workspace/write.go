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

// Package workspace is the filesystem sink for generated projects.
package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/codeblock"
)

// WriteOptions controls WriteFiles.
type WriteOptions struct {
	// OutputDir is the project root; it is created when absent.
	OutputDir string
}

// Written describes one file put on disk.
type Written struct {
	Path string // relative to OutputDir
	Size int
}

// ErrOutsideRoot is returned for paths that would land outside OutputDir.
var ErrOutsideRoot = errors.New("path escapes output directory")

// WriteFiles writes every file below opts.OutputDir, creating parent
// directories as needed. Files whose path is absolute or climbs out of the
// root are skipped and reported in the returned slice of rejected paths.
func WriteFiles(ctx context.Context, files []codeblock.File, opts WriteOptions) (written []Written, rejected []string, err error) {
	if opts.OutputDir == "" {
		return nil, nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", opts.OutputDir)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, rejected, err
		}
		if _, err := Resolve(opts.OutputDir, f.Path); err != nil {
			rejected = append(rejected, f.Path)
			continue
		}
		if err := WriteFile(opts.OutputDir, f.Path, []byte(f.Content)); err != nil {
			return written, rejected, err
		}
		written = append(written, Written{Path: filepath.ToSlash(filepath.Clean(f.Path)), Size: len(f.Content)})
	}
	return written, rejected, nil
}

// WriteFile writes data to root/rel, creating parent directories.
func WriteFile(root, rel string, data []byte) error {
	dest, err := Resolve(root, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, "create parent of %s", rel)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", rel)
	}
	return nil
}

// Resolve joins rel onto root and refuses results outside root.
func Resolve(root, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", errors.Wrap(ErrOutsideRoot, rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Wrap(ErrOutsideRoot, rel)
	}
	return filepath.Join(root, clean), nil
}

// ListFiles returns the slash-separated relative paths of all regular files
// under dir, sorted. node_modules is not descended into.
func ListFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
