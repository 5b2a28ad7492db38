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

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLogLevel(InfoLevel)

	SetLogLevel(InfoLevel)
	Debug("hidden %d", 1)
	Info("shown %d", 2)
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug entry written at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("info entry missing: %q", buf.String())
	}

	buf.Reset()
	SetLogLevel(DebugLevel)
	Debug("visible %s", "now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Errorf("debug entry missing at debug level: %q", buf.String())
	}

	buf.Reset()
	SetLogLevel(ErrorLevel)
	Info("quiet")
	Error("loud")
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Errorf("unexpected output at error level: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   DebugLevel,
		" DEBUG ": DebugLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"trace":   InfoLevel,
	} {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}
