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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
  host: "127.0.0.1"
log:
  level: "debug"
agent:
  tool_loop: single
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "single", cfg.Agent.ToolLoop)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log:\n  format: text\n"))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Agent.MaxHistory)
	assert.Equal(t, 5, cfg.Agent.MaxToolRounds)
	assert.Equal(t, "loop", cfg.Agent.ToolLoop)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 2, cfg.Backend.Retries)
	assert.Equal(t, "memory", cfg.Session.Type)
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_GROQ_KEY", "secret-key")
	t.Setenv("HMS_API_BASE", "http://hms.internal:9000")
	t.Setenv("HTTP_RETRIES", "4")
	t.Setenv("GROQ_MODEL", "llama-3.1-8b-instant")
	path := writeConfig(t, `
model:
  llm:
    providers:
      groq:
        api_key: "${TEST_GROQ_KEY}"
        base_url: "https://api.groq.com/openai/v1"
        models:
          default:
            name: "gemma2-9b-it"
  defaults:
    llm: "groq.default"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	groq := cfg.Model.LLM.Providers["groq"]
	assert.Equal(t, "secret-key", groq.APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", groq.Models["default"].Name)
	assert.Equal(t, "http://hms.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 4, cfg.Backend.Retries)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParseDefaultKey(t *testing.T) {
	p, m, err := ParseDefaultKey("groq.default")
	require.NoError(t, err)
	assert.Equal(t, "groq", p)
	assert.Equal(t, "default", m)

	_, _, err = ParseDefaultKey("groq")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseDuration("3s", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("bogus", time.Second))
}
