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

package tool

import (
	"context"

	emcp "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/cloudwego/eino/components/tool"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/version"
)

type MCPConfig struct {
	Name    string   `yaml:"name"`
	Type    MCPType  `yaml:"type"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Envs    []string `yaml:"envs"`
	URL     string   `yaml:"url"`
	// Tools limits the imported tools to these names; empty imports all.
	Tools []string `yaml:"tools"`
}

type MCPType string

const (
	MCPTypeStdio MCPType = "stdio"
	MCPTypeSSE   MCPType = "sse"
	MCPTypeHTTP  MCPType = "http"
)

type MCPClient struct {
	cfg MCPConfig
	cli *client.Client
}

func NewMCPClient(opts MCPConfig) (*MCPClient, error) {
	var cli *client.Client
	var err error
	switch opts.Type {
	case MCPTypeStdio:
		if opts.Command == "" {
			return nil, errors.New("command is empty")
		}
		cli, err = client.NewStdioMCPClient(opts.Command, opts.Envs, opts.Args...)
	case MCPTypeSSE:
		if opts.URL == "" {
			return nil, errors.New("sse url is empty")
		}
		cli, err = client.NewSSEMCPClient(opts.URL)
	case MCPTypeHTTP:
		if opts.URL == "" {
			return nil, errors.New("http url is empty")
		}
		cli, err = client.NewStreamableHttpClient(opts.URL)
	default:
		return nil, errors.Errorf("unsupported mcp type %q", opts.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "mcp client %s", opts.Name)
	}
	return &MCPClient{cfg: opts, cli: cli}, nil
}

// Start connects (stdio clients are already running) and performs the
// MCP handshake.
func (c *MCPClient) Start(ctx context.Context) error {
	if c.cfg.Type != MCPTypeStdio {
		if err := c.cli.Start(ctx); err != nil {
			return err
		}
	}
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "archgen",
		Version: version.Version,
	}
	_, err := c.cli.Initialize(ctx, initRequest)
	return err
}

func (c *MCPClient) GetTools(ctx context.Context) ([]tool.InvokableTool, error) {
	mcpTools, err := emcp.GetTools(ctx, &emcp.Config{Cli: c.cli, ToolNameList: c.cfg.Tools})
	if err != nil {
		return nil, err
	}
	var tools []tool.InvokableTool
	for _, t := range mcpTools {
		if it, ok := t.(tool.InvokableTool); ok {
			tools = append(tools, it)
		}
	}
	return tools, nil
}

func (c *MCPClient) Close() error {
	return c.cli.Close()
}
