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
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/archgen/llm/prompt"
	"github.com/cloudwego/archgen/llm/tool"
)

type Tool = server.ServerTool

// NewTool adapts a typed handler to an MCP tool. Handler errors become
// error results instead of protocol errors; string results are sent as is
// and anything else as indented JSON.
func NewTool[R any, T any](name string, desc string, schema json.RawMessage, handler func(ctx context.Context, req R) (T, error)) Tool {
	return Tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schema),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
			}
			resp, err := handler(ctx, req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if s, ok := any(resp).(string); ok {
				return mcp.NewToolResultText(s), nil
			}
			js, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(js)), nil
		},
	}
}

func lookupTools() []Tool {
	return []Tool{
		NewTool(tool.ToolLookupPostgres, tool.DescLookupPostgres, tool.SchemaLookupPostgres, tool.LookupPostgresTool),
	}
}

const PromptDesignSchema = "design_schema"

func handleDesignSchemaPrompt(store *prompt.Store) server.PromptHandlerFunc {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		msgs, err := store.Render(prompt.Architect, prompt.ArchitectData{
			Requirements: request.Params.Arguments["requirements"],
		})
		if err != nil {
			return nil, err
		}
		return &mcp.GetPromptResult{
			Description: "Design a PostgreSQL schema for a backend description",
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleAssistant, Content: mcp.NewTextContent(msgs.System)},
				{Role: mcp.RoleUser, Content: mcp.NewTextContent(msgs.User)},
			},
		}, nil
	}
}
