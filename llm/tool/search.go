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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/cloudwego/archgen/internal/log"
)

const (
	ToolSearchPostgres = "search_postgres_docs"
	DescSearchPostgres = "Search the web for current PostgreSQL documentation and best practices."

	DefaultTavilyURL  = "https://api.tavily.com/search"
	DefaultSerpAPIURL = "https://serpapi.com/search.json"

	// NoSearchKeyMessage is returned when no provider could answer.
	NoSearchKeyMessage = "No search API key configured (TAVILY_API_KEY or SERPAPI_API_KEY). Proceeding with internal knowledge only."

	searchMaxResults = 5
)

var SchemaSearchPostgres = GetJSONSchema(SearchPostgresReq{})

type SearchPostgresReq struct {
	Query string `json:"query" jsonschema:"description=the search query (e.g. 'PostgreSQL UUID primary key best practices')"`
}

type SearchOptions struct {
	TavilyAPIKey string        `yaml:"tavily_api_key"`
	SerpAPIKey   string        `yaml:"serpapi_api_key"`
	TavilyURL    string        `yaml:"tavily_url"`
	SerpAPIURL   string        `yaml:"serpapi_url"`
	Timeout      time.Duration `yaml:"timeout"`
	HTTPClient   *http.Client  `yaml:"-"`
}

// Enabled reports whether any search provider is configured.
func (o SearchOptions) Enabled() bool {
	return o.TavilyAPIKey != "" || o.SerpAPIKey != ""
}

// WebSearch queries Tavily, then SerpAPI. A provider failure moves on to
// the next one; when none answers a fixed message is returned so the model
// can carry on.
type WebSearch struct {
	opts SearchOptions
	cli  *http.Client
}

func NewWebSearch(opts SearchOptions) *WebSearch {
	if opts.TavilyURL == "" {
		opts.TavilyURL = DefaultTavilyURL
	}
	if opts.SerpAPIURL == "" {
		opts.SerpAPIURL = DefaultSerpAPIURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	cli := opts.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: opts.Timeout}
	}
	return &WebSearch{opts: opts, cli: cli}
}

func (w *WebSearch) Search(ctx context.Context, req SearchPostgresReq) (string, error) {
	if w.opts.TavilyAPIKey != "" {
		out, err := w.tavily(ctx, req.Query)
		if err == nil {
			return out, nil
		}
		log.Error("tavily search failed: %v", err)
	}
	if w.opts.SerpAPIKey != "" {
		out, err := w.serpapi(ctx, req.Query)
		if err == nil {
			return out, nil
		}
		log.Error("serpapi search failed: %v", err)
	}
	return NoSearchKeyMessage, nil
}

func (w *WebSearch) tavily(ctx context.Context, query string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"api_key":     w.opts.TavilyAPIKey,
		"query":       query,
		"max_results": searchMaxResults,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.opts.TavilyURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	data, err := w.do(req)
	if err != nil {
		return "", err
	}
	results := gjson.GetBytes(data, "results")
	if !results.IsArray() {
		return "", errors.New("tavily: no results field")
	}
	var parts []string
	results.ForEach(func(_, r gjson.Result) bool {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", r.Get("url").String(), r.Get("content").String()))
		return true
	})
	return strings.Join(parts, "\n\n"), nil
}

func (w *WebSearch) serpapi(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("api_key", w.opts.SerpAPIKey)
	q.Set("engine", "google")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.opts.SerpAPIURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	data, err := w.do(req)
	if err != nil {
		return "", err
	}
	if msg := gjson.GetBytes(data, "error"); msg.Exists() {
		return "", errors.Errorf("serpapi: %s", msg.String())
	}
	for _, path := range []string{"answer_box.answer", "answer_box.snippet", "knowledge_graph.description"} {
		if v := gjson.GetBytes(data, path); v.Exists() && v.String() != "" {
			return v.String(), nil
		}
	}
	var snippets []string
	for _, s := range gjson.GetBytes(data, "organic_results.#.snippet").Array() {
		if s.String() != "" {
			snippets = append(snippets, s.String())
		}
		if len(snippets) == searchMaxResults {
			break
		}
	}
	if len(snippets) == 0 {
		return "No good search result found", nil
	}
	return strings.Join(snippets, "\n"), nil
}

func (w *WebSearch) do(req *http.Request) ([]byte, error) {
	resp, err := w.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("%s: status %d", req.URL.Host, resp.StatusCode)
	}
	return data, nil
}

// NewSearchTool builds the web search tool.
func NewSearchTool(opts SearchOptions) (tool.InvokableTool, error) {
	return utils.InferTool(ToolSearchPostgres, DescSearchPostgres, NewWebSearch(opts).Search,
		utils.WithMarshalOutput(marshalText))
}
