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
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/log"
)

// Client wraps a ChatModel with per-attempt timeouts and retries on
// transient failures.
type Client struct {
	Model   ChatModel
	Retries int           // Number of retries, default: 3
	Timeout time.Duration // Per-attempt timeout, default: 600s

	// Backoff returns the wait before retry attempt n (n >= 1).
	Backoff func(n int) time.Duration
}

func NewClient(m ChatModel, cfg ModelConfig) *Client {
	return &Client{Model: m, Retries: cfg.Retries, Timeout: cfg.Timeout}
}

// Complete sends a system and a user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error) {
	msgs := []*schema.Message{schema.SystemMessage(system), schema.UserMessage(user)}
	out, err := c.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// Generate calls the plain model.
func (c *Client) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return c.generate(ctx, c.Model, msgs, opts...)
}

func (c *Client) generate(ctx context.Context, m model.BaseChatModel, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if c.Model == nil {
		return nil, errors.New("no chat model configured")
	}
	retries := c.Retries
	if retries <= 0 {
		retries = 3
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	backoff := c.Backoff
	if backoff == nil {
		backoff = defaultBackoff
	}
	ctx = withCallbacks(ctx)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying LLM call (attempt %d/%d)...", attempt+1, retries+1)
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "llm call")
			case <-time.After(backoff(attempt)):
			}
		}

		out, err := c.once(ctx, m, msgs, timeout, opts)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			log.Error("Non-retryable error occurred: %v", err)
			return nil, errors.Wrap(err, "llm call")
		}
		log.Info("Retryable error occurred (attempt %d/%d): %v", attempt+1, retries+1, err)
	}
	return nil, errors.Wrapf(lastErr, "llm call failed after %d attempts", retries+1)
}

func (c *Client) once(ctx context.Context, m model.BaseChatModel, msgs []*schema.Message, timeout time.Duration, opts []model.Option) (*schema.Message, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := m.Generate(attemptCtx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("empty response from model")
	}
	return out, nil
}

// exponential: 1s, 2s, 4s... capped at 10s
func defaultBackoff(n int) time.Duration {
	wait := time.Duration(1<<uint(n-1)) * time.Second
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

var transientMarkers = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"operation timed out",
	"context deadline exceeded",
	"read tcp",
	"write tcp",
	"429",
	"rate limit",
	"502",
	"503",
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
