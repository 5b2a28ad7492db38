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
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/archgen/llm/llmtest"
)

func noWait(int) time.Duration { return 0 }

func TestClient_Complete(t *testing.T) {
	m := llmtest.NewModel(llmtest.Text("CREATE TABLE t ();"))
	c := &Client{Model: m, Backoff: noWait}

	out, err := c.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t ();", out)

	calls := m.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, schema.System, calls[0].Messages[0].Role)
	assert.Equal(t, "user", calls[0].Messages[1].Content)
}

func TestClient_RetriesTransient(t *testing.T) {
	m := llmtest.NewModel(
		llmtest.Fail(errors.New("read tcp 10.0.0.1: connection reset by peer")),
		llmtest.Fail(errors.New("status 503")),
		llmtest.Text("ok"),
	)
	c := &Client{Model: m, Retries: 3, Backoff: noWait}
	out, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Len(t, m.Calls(), 3)
}

func TestClient_NonRetryable(t *testing.T) {
	m := llmtest.NewModel(llmtest.Fail(errors.New("invalid api key")), llmtest.Text("unused"))
	c := &Client{Model: m, Backoff: noWait}
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Len(t, m.Calls(), 1)
}

func TestClient_RetriesExhausted(t *testing.T) {
	m := &llmtest.Model{Handler: func(int, []*schema.Message, []*schema.ToolInfo) (*schema.Message, error) {
		return nil, errors.New("operation timed out")
	}}
	c := &Client{Model: m, Retries: 2, Backoff: noWait}
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, m.Calls(), 3)
}

func TestClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{Model: llmtest.NewModel(llmtest.Text("x")), Backoff: noWait}
	_, err := c.Complete(ctx, "s", "u")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_NoModel(t *testing.T) {
	_, err := (&Client{}).Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestDefaultBackoff(t *testing.T) {
	assert.Equal(t, time.Second, defaultBackoff(1))
	assert.Equal(t, 4*time.Second, defaultBackoff(3))
	assert.Equal(t, 10*time.Second, defaultBackoff(8))
}

func TestNewModelType(t *testing.T) {
	assert.Equal(t, ModelTypeOpenAI, NewModelType("GPT"))
	assert.Equal(t, ModelTypeClaude, NewModelType("anthropic"))
	assert.Equal(t, ModelTypeDashScope, NewModelType("qwen"))
	assert.Equal(t, ModelTypeUnknown, NewModelType("nope"))
}

func TestNewChatModel_Unsupported(t *testing.T) {
	_, err := NewChatModel(context.Background(), ModelConfig{APIType: "nope"})
	assert.Error(t, err)
}

func TestNewChatModel_OpenAICompatible(t *testing.T) {
	for _, typ := range []ModelType{ModelTypeUnknown, ModelTypeOpenAI, ModelTypeDeepSeek} {
		cm, err := NewChatModel(context.Background(), ModelConfig{APIType: typ, APIKey: "sk-test"})
		require.NoError(t, err, typ)
		assert.NotNil(t, cm)
	}
	assert.Equal(t, "https://api.deepseek.com", orDefault("", deepSeekBaseURL))
	assert.Equal(t, "http://proxy", orDefault("http://proxy", deepSeekBaseURL))
}
