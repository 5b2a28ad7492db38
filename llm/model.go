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
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/pkg/errors"
)

const (
	dashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	deepSeekBaseURL  = "https://api.deepseek.com"
)

type providerFunc func(ctx context.Context, m *ModelConfig) (ChatModel, error)

var providers = map[ModelType]providerFunc{
	ModelTypeOpenAI:    openAICompatible(""),
	ModelTypeDeepSeek:  openAICompatible(deepSeekBaseURL),
	ModelTypeARK:       newARK,
	ModelTypeDashScope: newDashScope,
	ModelTypeOllama:    newOllama,
	ModelTypeClaude:    newClaude,
}

// NewChatModel builds the provider client for m. An unset APIType means
// OpenAI.
func NewChatModel(ctx context.Context, m ModelConfig) (ChatModel, error) {
	if m.APIType == ModelTypeUnknown {
		m.APIType = ModelTypeOpenAI
	}
	newModel, ok := providers[m.APIType]
	if !ok {
		return nil, errors.Errorf("unsupported model type %q", m.APIType)
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = 16 * 1024
	}
	if m.Timeout == 0 {
		m.Timeout = 600 * time.Second
	}
	if m.ModelName == "" && m.APIType != ModelTypeOllama {
		m.ModelName = DefaultModelName
	}
	cm, err := newModel(ctx, &m)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s chat model", m.APIType)
	}
	return cm, nil
}

// openAICompatible serves every endpoint speaking the OpenAI chat API.
// defaultBase is used when the config has no base URL.
func openAICompatible(defaultBase string) providerFunc {
	return func(ctx context.Context, m *ModelConfig) (ChatModel, error) {
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     orDefault(m.BaseURL, defaultBase),
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
	}
}

func newARK(ctx context.Context, m *ModelConfig) (ChatModel, error) {
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     m.BaseURL,
		APIKey:      m.APIKey,
		Model:       m.ModelName,
		Temperature: m.Temperature,
		MaxTokens:   &m.MaxTokens,
	})
}

func newDashScope(ctx context.Context, m *ModelConfig) (ChatModel, error) {
	return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     orDefault(m.BaseURL, dashScopeBaseURL),
		APIKey:      m.APIKey,
		Model:       m.ModelName,
		Temperature: m.Temperature,
		MaxTokens:   &m.MaxTokens,
		Timeout:     m.Timeout,
	})
}

func newOllama(ctx context.Context, m *ModelConfig) (ChatModel, error) {
	return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: m.BaseURL,
		Model:   m.ModelName,
	})
}

func newClaude(ctx context.Context, m *ModelConfig) (ChatModel, error) {
	var baseURL *string
	if m.BaseURL != "" {
		baseURL = &m.BaseURL
	}
	return claude.NewChatModel(ctx, &claude.Config{
		BaseURL:     baseURL,
		APIKey:      m.APIKey,
		Model:       m.ModelName,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
