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

package llm

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwardan/internal/model/llm/llmtest"
	"agentwardan/pkg/config"
	"agentwardan/pkg/secrets"
)

func TestRateLimiter_Concurrency(t *testing.T) {
	l := NewRateLimiter(map[string]LimitConfig{"groq": {MaxConcurrent: 1}}, LimitConfig{})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "groq"))
	assert.Equal(t, 1, l.InFlight("groq"))

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(blocked, "groq"), "second caller must wait for a slot")

	l.Release("groq")
	assert.Equal(t, 0, l.InFlight("groq"))
	require.NoError(t, l.Wait(ctx, "groq"))
	l.Release("groq")
}

func TestRateLimiter_UnknownProviderUsesDefaults(t *testing.T) {
	l := NewRateLimiter(nil, LimitConfig{})
	require.NoError(t, l.Wait(context.Background(), "openai"))
	assert.Equal(t, 0, l.InFlight("openai"))
	l.Release("openai")
}

func TestRateLimitedChatModel(t *testing.T) {
	inner := llmtest.New(llmtest.Text("hello"), llmtest.Text("again"))
	l := NewRateLimiter(map[string]LimitConfig{"groq": {MaxConcurrent: 1}}, LimitConfig{})
	m := NewRateLimitedChatModel(inner, l, "groq")

	out, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Content)
	assert.Equal(t, 0, l.InFlight("groq"), "slot released after Generate")

	bound, err := m.WithTools([]*schema.ToolInfo{{Name: "list_rooms", Desc: "List rooms"}})
	require.NoError(t, err)
	require.Len(t, inner.Tools(), 1)
	out, err = bound.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "again", out.Content)
}

func testConfig(apiKey string) *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			LLM: config.LLMConfig{Providers: map[string]config.ProviderConfig{
				"groq": {APIKey: apiKey, Models: map[string]config.ModelInfo{
					"gemma": {Name: "gemma2-9b-it", Temperature: 0.1},
				}},
			}},
			Defaults: config.DefaultsConfig{LLM: "groq.gemma"},
		},
	}
}

func TestResolve(t *testing.T) {
	store := secrets.NewMemoryStore(map[string]string{"groq_key": "sk-test"})

	r, err := Resolve(context.Background(), testConfig("secret:groq_key"), store)
	require.NoError(t, err)
	assert.Equal(t, "groq", r.Provider)
	assert.Equal(t, "gemma2-9b-it", r.Model)
	assert.Equal(t, "sk-test", r.APIKey)
	assert.Equal(t, GroqBaseURL, r.BaseURL)

	_, err = Resolve(context.Background(), testConfig(""), store)
	assert.Error(t, err, "missing api key")

	cfg := testConfig("k")
	cfg.Model.Defaults.LLM = "groq.missing"
	_, err = Resolve(context.Background(), cfg, store)
	assert.Error(t, err)

	cfg.Model.Defaults.LLM = "nodot"
	_, err = Resolve(context.Background(), cfg, store)
	assert.Error(t, err)
}
