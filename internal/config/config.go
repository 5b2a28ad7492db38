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

// Package config loads the archgen configuration: a YAML file, then
// environment overrides. Command-line flags are applied by the caller.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/internal/runner"
	"github.com/cloudwego/archgen/llm"
	"github.com/cloudwego/archgen/llm/tool"
)

type Config struct {
	Model         llm.ModelConfig `yaml:"model"`
	OutputDir     string          `yaml:"output_dir"`
	MaxIterations int             `yaml:"max_iterations"`
	PromptDir     string          `yaml:"prompt_dir"`
	StateFile     string          `yaml:"state_file"`
	LogLevel      string          `yaml:"log_level"`

	Tools   ToolsConfig   `yaml:"tools"`
	Test    TestConfig    `yaml:"test"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ToolsConfig struct {
	MaxRounds int                `yaml:"max_rounds"`
	Search    tool.SearchOptions `yaml:"search"`
	MCP       []tool.MCPConfig   `yaml:"mcp"`
}

type TestConfig struct {
	// Disabled skips test generation and execution entirely.
	Disabled bool          `yaml:"disabled"`
	NPM      string        `yaml:"npm"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Addr     string `yaml:"addr"`
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	temp := float32(0.2)
	return &Config{
		Model: llm.ModelConfig{
			APIType:     llm.ModelTypeOpenAI,
			ModelName:   llm.DefaultModelName,
			Temperature: &temp,
			Timeout:     600 * time.Second,
			Retries:     3,
		},
		OutputDir:     pipeline.DefaultOutputDir,
		MaxIterations: pipeline.MaxIterations,
		LogLevel:      "info",
		Tools:         ToolsConfig{MaxRounds: llm.MaxToolRounds},
		Test:          TestConfig{NPM: "npm", Timeout: runner.DefaultTimeout},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return c, nil
}

// ApplyEnv overrides c from the environment. getenv is os.Getenv outside
// tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("API_TYPE"); v != "" {
		c.Model.APIType = llm.NewModelType(v)
	}
	if v := getenv("API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := getenv("MODEL_NAME"); v != "" {
		c.Model.ModelName = v
	}
	if v := getenv("BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if c.Model.APIKey == "" && (c.Model.APIType == llm.ModelTypeOpenAI || c.Model.APIType == llm.ModelTypeUnknown) {
		c.Model.APIKey = getenv("OPENAI_API_KEY")
	}
	if v := getenv("TAVILY_API_KEY"); v != "" {
		c.Tools.Search.TavilyAPIKey = v
	}
	if v := getenv("SERPAPI_API_KEY"); v != "" {
		c.Tools.Search.SerpAPIKey = v
	}
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.Model.APIType == llm.ModelTypeUnknown {
		problems = append(problems, "model type is unknown (set API_TYPE or model.type)")
	}
	if c.Model.APIKey == "" && c.Model.APIType != llm.ModelTypeOllama {
		problems = append(problems, "model api key is empty (set API_KEY or OPENAI_API_KEY)")
	}
	if c.MaxIterations <= 0 {
		problems = append(problems, "max_iterations must be positive")
	}
	if c.Tools.MaxRounds <= 0 {
		problems = append(problems, "tools.max_rounds must be positive")
	}
	if c.Test.Timeout <= 0 {
		problems = append(problems, "test.timeout must be positive")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
