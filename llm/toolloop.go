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

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/log"
)

// MaxToolRounds bounds the model/tool round trips of one RunToolLoop.
const MaxToolRounds = 5

// Exchange is one tool call requested by the model and its answer.
type Exchange struct {
	Round  int
	Call   schema.ToolCall
	Result string
	Err    error
}

// ToolLoopResult is the outcome of RunToolLoop.
type ToolLoopResult struct {
	Content   string
	Exchanges []Exchange
	Rounds    int
	// Exhausted is set when every round asked for tools and the content
	// comes from the fallback call.
	Exhausted bool
}

// RunToolLoop lets the model call tools for up to maxRounds round trips.
// The first reply without tool calls ends the loop. When the rounds run out
// one plain call is made with msgs plus a summary of the tool findings.
// Tool failures are handed back to the model as "tool error: ..." text.
func (c *Client) RunToolLoop(ctx context.Context, msgs []*schema.Message, tools []tool.InvokableTool, maxRounds int, opts ...model.Option) (*ToolLoopResult, error) {
	if maxRounds <= 0 {
		maxRounds = MaxToolRounds
	}
	if c.Model == nil {
		return nil, errors.New("no chat model configured")
	}
	res := &ToolLoopResult{}
	if len(tools) == 0 {
		out, err := c.Generate(ctx, msgs, opts...)
		if err != nil {
			return nil, err
		}
		res.Content = out.Content
		return res, nil
	}

	byName := make(map[string]tool.InvokableTool, len(tools))
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "tool info")
		}
		byName[info.Name] = t
		infos = append(infos, info)
	}
	bound, err := c.Model.WithTools(infos)
	if err != nil {
		return nil, errors.Wrap(err, "bind tools")
	}

	conv := append([]*schema.Message{}, msgs...)
	for round := 1; round <= maxRounds; round++ {
		res.Rounds = round
		out, err := c.generate(ctx, bound, conv, opts...)
		if err != nil {
			return nil, err
		}
		if len(out.ToolCalls) == 0 {
			res.Content = out.Content
			return res, nil
		}
		conv = append(conv, out)
		for _, call := range out.ToolCalls {
			ex := invoke(ctx, byName, call)
			ex.Round = round
			res.Exchanges = append(res.Exchanges, ex)
			conv = append(conv, schema.ToolMessage(ex.Result, call.ID))
		}
	}

	log.Info("tool loop exhausted after %d rounds, falling back to a plain call", maxRounds)
	res.Exhausted = true
	fallback := append([]*schema.Message{}, msgs...)
	fallback = append(fallback, schema.UserMessage(summarize(res.Exchanges)))
	out, err := c.Generate(ctx, fallback, opts...)
	if err != nil {
		return nil, err
	}
	res.Content = out.Content
	return res, nil
}

func invoke(ctx context.Context, byName map[string]tool.InvokableTool, call schema.ToolCall) Exchange {
	ex := Exchange{Call: call}
	t, ok := byName[call.Function.Name]
	if !ok {
		ex.Err = errors.Errorf("unknown tool %q", call.Function.Name)
	} else {
		ex.Result, ex.Err = runTool(ctx, t, call.Function.Arguments)
	}
	if ex.Err != nil {
		log.Error("tool %s failed: %v", call.Function.Name, ex.Err)
		ex.Result = "tool error: " + ex.Err.Error()
	}
	log.Debug("[Tool] %s(%s) -> %d chars", call.Function.Name, call.Function.Arguments, len(ex.Result))
	return ex
}

func runTool(ctx context.Context, t tool.InvokableTool, args string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	return t.InvokableRun(ctx, args)
}

func summarize(exchanges []Exchange) string {
	var sb strings.Builder
	sb.WriteString("Tool budget exhausted. Findings so far:\n")
	for _, ex := range exchanges {
		fmt.Fprintf(&sb, "\n[%s %s]\n%s\n", ex.Call.Function.Name, ex.Call.Function.Arguments, ex.Result)
	}
	sb.WriteString("\nProduce the final answer now without calling any tools.")
	return sb.String()
}
