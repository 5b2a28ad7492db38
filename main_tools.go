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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/archgen/internal/config"
	"github.com/cloudwego/archgen/llm/tool"
)

// listTools prints the tools the schema designer would be offered with cfg.
// MCP servers are started to list their tools and stopped again.
func listTools(ctx context.Context, cfg *config.Config, out io.Writer) error {
	tools, err := tool.NewArchitectTools(ctx, tool.ArchitectToolsOptions{
		Search: cfg.Tools.Search,
		MCP:    cfg.Tools.MCP,
	})
	if err != nil {
		return err
	}
	defer tools.Close()

	infos := tools.Tools()
	fmt.Fprintf(out, "Architect tools (%d, at most %d rounds):\n\n", len(infos), cfg.Tools.MaxRounds)
	for _, t := range infos {
		info, err := t.Info(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", info.Name)
		fmt.Fprintf(out, "    %s\n", info.Desc)
		fmt.Fprintln(out)
	}
	if !cfg.Tools.Search.Enabled() {
		fmt.Fprintf(out, "%s\n", tool.NoSearchKeyMessage)
	}
	return nil
}
