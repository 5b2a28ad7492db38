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

package mcp

import (
	"context"
	"io"
	stdlog "log"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/internal/workspace"
	"github.com/cloudwego/archgen/llm/prompt"
	"github.com/cloudwego/archgen/llm/tool"
)

const (
	ToolGenerateBackend = "generate_backend"
	DescGenerateBackend = "Generate a PostgreSQL schema and a tested Node.js/Express backend from a natural-language description. Blocks until the run ends."
)

var SchemaGenerateBackend = tool.GetJSONSchema(GenerateReq{})

type GenerateReq struct {
	Requirements string `json:"requirements" jsonschema:"description=natural-language description of the backend"`
	OutputDir    string `json:"output_dir,omitempty" jsonschema:"description=directory for the generated project (default ./output)"`
}

type GenerateResp struct {
	RunID      string   `json:"run_id"`
	Status     string   `json:"status"`
	Iterations int      `json:"iterations"`
	OutputDir  string   `json:"output_dir"`
	TestStatus string   `json:"test_status,omitempty"`
	Files      []string `json:"files"`
	Feedback   []string `json:"feedback,omitempty"`
}

// RunFunc executes one generation run.
type RunFunc func(ctx context.Context, requirements, outputDir string) (*pipeline.RunState, error)

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	Run           RunFunc
	Prompts       *prompt.Store
	Verbose       bool
}

type Server struct {
	Server *server.MCPServer
	opts   ServerOptions
}

func NewServer(opts ServerOptions) *Server {
	if opts.Prompts == nil {
		opts.Prompts = prompt.Default()
	}
	sopts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
	}
	if opts.Verbose {
		sopts = append(sopts, server.WithLogging())
	}
	s := &Server{
		Server: server.NewMCPServer(opts.ServerName, opts.ServerVersion, sopts...),
		opts:   opts,
	}

	s.Server.AddTools(lookupTools()...)
	if opts.Run != nil {
		s.Server.AddTools(NewTool(ToolGenerateBackend, DescGenerateBackend, SchemaGenerateBackend, s.generate))
	}
	s.Server.AddPrompt(mcp.NewPrompt(PromptDesignSchema,
		mcp.WithPromptDescription("Prompt for designing a PostgreSQL schema"),
		mcp.WithArgument("requirements",
			mcp.ArgumentDescription("natural-language description of the backend"),
			mcp.RequiredArgument()),
	), handleDesignSchemaPrompt(opts.Prompts))
	return s
}

func (s *Server) generate(ctx context.Context, req GenerateReq) (*GenerateResp, error) {
	if req.Requirements == "" {
		return nil, errors.New("requirements must not be empty")
	}
	st, err := s.opts.Run(ctx, req.Requirements, req.OutputDir)
	if st == nil {
		if err == nil {
			err = errors.New("run returned no state")
		}
		return nil, err
	}
	resp := &GenerateResp{
		RunID:      st.RunID,
		Status:     string(st.Status),
		Iterations: st.Iterations,
		OutputDir:  st.OutputDir,
		TestStatus: string(st.TestStatus),
		Feedback:   st.Feedback,
		Files:      []string{},
	}
	if abs, aerr := filepath.Abs(st.OutputDir); aerr == nil {
		resp.OutputDir = abs
	}
	if files, lerr := workspace.ListFiles(st.OutputDir); lerr == nil {
		resp.Files = files
	}
	if err != nil {
		return nil, errors.Wrapf(err, "run %s ended %s", st.RunID, st.Status)
	}
	return resp, nil
}

// ServeStdio serves MCP over the given streams until ctx is done or in
// reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer, errLog io.Writer) error {
	stdio := server.NewStdioServer(s.Server)
	stdio.SetErrorLogger(newStdLogger(errLog))
	return stdio.Listen(ctx, in, out)
}

func newStdLogger(w io.Writer) *stdlog.Logger {
	if w == nil {
		w = io.Discard
	}
	return stdlog.New(w, "mcp: ", stdlog.LstdFlags)
}
