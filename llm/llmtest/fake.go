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

// Package llmtest provides a scripted chat model for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
)

// Reply is one scripted model answer.
type Reply struct {
	Msg *schema.Message
	Err error
}

// Text is a plain assistant reply.
func Text(content string) Reply {
	return Reply{Msg: schema.AssistantMessage(content, nil)}
}

// Calls is an assistant reply that requests tool calls.
func Calls(calls ...schema.ToolCall) Reply {
	return Reply{Msg: schema.AssistantMessage("", calls)}
}

// Fail is a failed call.
func Fail(err error) Reply { return Reply{Err: err} }

// ToolCall builds a tool call request.
func ToolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

// Call records one Generate invocation.
type Call struct {
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

// Model answers from Script in order, or from Handler when set. Models
// returned by WithTools share the script and the call log.
type Model struct {
	Script  []Reply
	Handler func(n int, in []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)

	mu    sync.Mutex
	calls []Call
	tools []*schema.ToolInfo
	root  *Model
}

var _ model.ToolCallingChatModel = (*Model)(nil)

func NewModel(replies ...Reply) *Model {
	return &Model{Script: replies}
}

func (m *Model) base() *Model {
	if m.root != nil {
		return m.root
	}
	return m
}

func (m *Model) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.base()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Messages: append([]*schema.Message(nil), in...), Tools: m.tools})
	if r.Handler != nil {
		return r.Handler(len(r.calls)-1, in, m.tools)
	}
	if len(r.Script) == 0 {
		return nil, errors.New("fake model: script exhausted")
	}
	rep := r.Script[0]
	r.Script = r.Script[1:]
	return rep.Msg, rep.Err
}

func (m *Model) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *Model) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &Model{tools: tools, root: m.base()}, nil
}

// Calls returns the recorded invocations.
func (m *Model) Calls() []Call {
	r := m.base()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
