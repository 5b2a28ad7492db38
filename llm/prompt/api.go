/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package prompt

import (
	"bytes"
	"context"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/log"
)

// Name identifies a prompt set. Each set is a template file defining a
// "system" and a "user" template.
type Name string

const (
	Architect Name = "architect"
	Developer Name = "developer"
	Reviewer  Name = "reviewer"
	Tester    Name = "tester"
)

// Names lists every prompt set.
var Names = []Name{Architect, Developer, Reviewer, Tester}

// ApprovalToken is the exact reply a reviewer gives to accept the code.
const ApprovalToken = "APPROVED"

//go:embed *.md
var embedded embed.FS

type ArchitectData struct {
	Requirements string
	HasTools     bool
}

type DeveloperData struct {
	Requirements string
	Schema       string
	Feedback     []string
}

type ReviewerData struct {
	Schema        string
	Code          string
	ApprovalToken string
}

type TesterData struct {
	Schema  string
	Sources string
	Files   []string
	Failure string
}

// Messages is a rendered prompt set.
type Messages struct {
	System string
	User   string
}

// Store holds the parsed prompt sets. Files named <name>.md in the override
// directory replace the embedded ones.
type Store struct {
	dir string

	mu   sync.RWMutex
	sets map[Name]*template.Template
}

// NewStore loads the embedded prompts and then any overrides from dir.
// An empty dir means embedded prompts only.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, sets: make(map[Name]*template.Template, len(Names))}
	for _, n := range Names {
		data, err := embedded.ReadFile(string(n) + ".md")
		if err != nil {
			return nil, err
		}
		tpl, err := parse(n, data)
		if err != nil {
			return nil, err
		}
		s.sets[n] = tpl
	}
	if dir == "" {
		return s, nil
	}
	for _, n := range Names {
		if err := s.reload(filepath.Join(dir, string(n)+".md")); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, err
		}
	}
	return s, nil
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the store of embedded prompts.
func Default() *Store {
	defaultOnce.Do(func() {
		s, err := NewStore("")
		if err != nil {
			panic(err)
		}
		defaultStore = s
	})
	return defaultStore
}

func parse(n Name, data []byte) (*template.Template, error) {
	tpl, err := template.New(string(n)).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parse prompt %s", n)
	}
	for _, part := range []string{"system", "user"} {
		if tpl.Lookup(part) == nil {
			return nil, errors.Errorf("prompt %s: missing %q template", n, part)
		}
	}
	return tpl, nil
}

// reload replaces the set named by the file at path. Files that do not
// name a known set are ignored.
func (s *Store) reload(path string) error {
	n := Name(strings.TrimSuffix(filepath.Base(path), ".md"))
	if !known(n) || filepath.Ext(path) != ".md" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	tpl, err := parse(n, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sets[n] = tpl
	s.mu.Unlock()
	log.Info("loaded prompt override %s", path)
	return nil
}

func known(n Name) bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Render executes the system and user templates of n with data.
func (s *Store) Render(n Name, data any) (Messages, error) {
	s.mu.RLock()
	tpl, ok := s.sets[n]
	s.mu.RUnlock()
	if !ok {
		return Messages{}, errors.Errorf("unknown prompt %q", n)
	}
	var out Messages
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "system", data); err != nil {
		return Messages{}, errors.Wrapf(err, "render %s system prompt", n)
	}
	out.System = strings.TrimSpace(buf.String())
	buf.Reset()
	if err := tpl.ExecuteTemplate(&buf, "user", data); err != nil {
		return Messages{}, errors.Wrapf(err, "render %s user prompt", n)
	}
	out.User = strings.TrimSpace(buf.String())
	return out, nil
}

// Watch reloads overrides whenever a file in the override directory is
// written or created, until ctx is done. A broken override is logged and
// the previous version stays in use.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create prompt watcher")
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return errors.Wrapf(err, "watch %s", s.dir)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.reload(ev.Name); err != nil {
					log.Error("reload prompt %s: %v", ev.Name, err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("prompt watcher: %v", err)
			}
		}
	}()
	return nil
}
