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

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/archgen/internal/log"
)

// CallbackHandler logs model traffic at debug level.
type CallbackHandler struct{}

var _ callbacks.Handler = (*CallbackHandler)(nil)

func withCallbacks(ctx context.Context) context.Context {
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{Name: "archgen", Component: "ChatModel"}, CallbackHandler{})
}

func (h CallbackHandler) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if in := model.ConvCallbackInput(input); in != nil {
		log.Debug("[LLM] %s start: %d messages, %d tools", info.Name, len(in.Messages), len(in.Tools))
	}
	return ctx
}

func (h CallbackHandler) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if out := model.ConvCallbackOutput(output); out != nil && out.Message != nil {
		log.Debug("[LLM] %s end: %d chars, %d tool calls", info.Name, len(out.Message.Content), len(out.Message.ToolCalls))
		if out.TokenUsage != nil {
			log.Debug("[LLM] tokens: prompt=%d completion=%d", out.TokenUsage.PromptTokens, out.TokenUsage.CompletionTokens)
		}
	}
	return ctx
}

func (h CallbackHandler) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Error("[LLM] %s error: %v", info.Name, err)
	return ctx
}

func (h CallbackHandler) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (h CallbackHandler) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
