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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwardan/internal/app"
	"agentwardan/internal/model/llm/llmtest"
	"agentwardan/pkg/config"
	"agentwardan/pkg/log"
	"agentwardan/pkg/secrets"
)

func TestApp_QueryRoundTrip(t *testing.T) {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = "http://127.0.0.1:1"
	cfg.Monitoring.Prometheus.Enable = true
	cfg.API.CORS.Enable = true
	b := &app.Bootstrap{Config: cfg, Logger: log.Nop(), Secrets: secrets.NewMemoryStore(nil)}

	oracle := llmtest.New(llmtest.Text("plan"), llmtest.Text(`{"summary":"Hello from AgentWardan","data":[]}`))
	components, err := app.NewComponents(context.Background(), b, oracle)
	require.NoError(t, err)
	a := newApp(b, components)
	defer func() { require.NoError(t, a.Shutdown(context.Background())) }()

	h := a.build(":0")
	body := []byte(`{"query":"hello","session_id":"web"}`)
	w := ut.PerformRequest(h.Engine, "POST", "/api/agent/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	require.Equal(t, 200, w.Result().StatusCode())
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Result().Body(), &env))
	assert.Equal(t, "Hello from AgentWardan", env["summary"])

	w = ut.PerformRequest(h.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "agentwardan_turns_total")
}
