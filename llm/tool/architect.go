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
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/log"
)

type ArchitectToolsOptions struct {
	Search SearchOptions
	MCP    []MCPConfig
}

// ArchitectTools is the tool set offered to the schema designer: the
// offline lookup always, web search when a key is configured, and the tools
// of every configured MCP server that starts.
type ArchitectTools struct {
	tools   []tool.InvokableTool
	clients []*MCPClient
}

func NewArchitectTools(ctx context.Context, opts ArchitectToolsOptions) (*ArchitectTools, error) {
	ret := &ArchitectTools{}
	lookup, err := NewLookupPostgresTool()
	if err != nil {
		return nil, err
	}
	ret.tools = append(ret.tools, lookup)

	if opts.Search.Enabled() {
		search, err := NewSearchTool(opts.Search)
		if err != nil {
			return nil, err
		}
		ret.tools = append(ret.tools, search)
	}

	for _, cfg := range opts.MCP {
		ts, err := ret.loadMCP(ctx, cfg)
		if err != nil {
			// an unavailable MCP server only costs its tools
			log.Error("skip mcp server %s: %v", cfg.Name, err)
			continue
		}
		ret.tools = append(ret.tools, ts...)
	}
	return ret, nil
}

func (a *ArchitectTools) loadMCP(ctx context.Context, cfg MCPConfig) ([]tool.InvokableTool, error) {
	cli, err := NewMCPClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := cli.Start(ctx); err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "start")
	}
	ts, err := cli.GetTools(ctx)
	if err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "list tools")
	}
	a.clients = append(a.clients, cli)
	return ts, nil
}

func (a *ArchitectTools) Tools() []tool.InvokableTool {
	return a.tools
}

// Names returns the sorted tool names.
func (a *ArchitectTools) Names(ctx context.Context) []string {
	var names []string
	for _, t := range a.tools {
		if info, err := t.Info(ctx); err == nil {
			names = append(names, info.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Close stops the MCP clients.
func (a *ArchitectTools) Close() error {
	var first error
	for _, c := range a.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.clients = nil
	return first
}
