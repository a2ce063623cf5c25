// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package llm builds the oracle chat model used by the planner and the direct tool-call path.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"agentwardan/pkg/config"
	"agentwardan/pkg/secrets"
)

// GroqBaseURL is the OpenAI-compatible Groq endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Resolved is the oracle selection after config defaults and secrets are applied.
type Resolved struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Resolve 根据 config.Model.Defaults.LLM 解析 provider.model_key，并通过 secrets 解析 api_key
func Resolve(ctx context.Context, cfg *config.Config, store secrets.Store) (*Resolved, error) {
	if cfg == nil || cfg.Model.Defaults.LLM == "" {
		return nil, fmt.Errorf("model.defaults.llm not configured")
	}
	provider, modelKey, err := config.ParseDefaultKey(cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("LLM model %q not configured in provider %q", modelKey, provider)
	}
	apiKey := pc.APIKey
	if store != nil {
		if apiKey, err = secrets.Resolve(ctx, store, apiKey); err != nil {
			return nil, fmt.Errorf("resolve %s api_key: %w", provider, err)
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("LLM provider %q api_key not configured", provider)
	}
	baseURL := pc.BaseURL
	if baseURL == "" && provider == "groq" {
		baseURL = GroqBaseURL
	}
	return &Resolved{
		Provider:    provider,
		Model:       mi.Name,
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Temperature: mi.Temperature,
		MaxTokens:   mi.MaxTokens,
	}, nil
}

// NewChatModel creates the eino-ext OpenAI-compatible chat model, wrapped with the
// provider's rate limit from cfg.RateLimits.LLM.
func NewChatModel(ctx context.Context, cfg *config.Config, store secrets.Store) (model.ToolCallingChatModel, error) {
	r, err := Resolve(ctx, cfg, store)
	if err != nil {
		return nil, err
	}
	mc := &openai.ChatModelConfig{
		Model:   r.Model,
		APIKey:  r.APIKey,
		BaseURL: r.BaseURL,
		Timeout: config.ParseDuration(cfg.Agent.OracleTimeout, 60*time.Second),
	}
	if r.Temperature > 0 {
		t := float32(r.Temperature)
		mc.Temperature = &t
	}
	if r.MaxTokens > 0 {
		n := r.MaxTokens
		mc.MaxTokens = &n
	}
	chatModel, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("create %s chat model: %w", r.Provider, err)
	}

	limits := make(map[string]LimitConfig, len(cfg.RateLimits.LLM))
	for provider, rl := range cfg.RateLimits.LLM {
		limits[provider] = LimitConfig{
			RequestsPerMinute: rl.RequestsPerMinute,
			Burst:             rl.Burst,
			MaxConcurrent:     rl.MaxConcurrent,
		}
	}
	return NewRateLimitedChatModel(chatModel, NewRateLimiter(limits, LimitConfig{}), r.Provider), nil
}
