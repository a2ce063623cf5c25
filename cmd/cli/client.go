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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("AGENTWARDAN_API_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(90 * time.Second).
		SetHeader("Content-Type", "application/json")
}

// jsonRequest decodes the body as JSON whatever Content-Type the server sends.
func jsonRequest(out any) *resty.Request {
	return newClient().R().
		ForceContentType("application/json").
		SetResult(out)
}

func getHealth() (map[string]any, error) {
	var out map[string]any
	resp, err := jsonRequest(&out).Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

// postQuery sends one turn and returns the raw envelope text.
func postQuery(sessionID, query string) (string, error) {
	body := map[string]string{"query": query}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	resp, err := newClient().R().
		SetBody(body).
		Post("/api/agent/query")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("POST /api/agent/query: %s", resp.String())
	}
	return resp.String(), nil
}

func getTranscript(sessionID string) (map[string]any, error) {
	var out map[string]any
	resp, err := jsonRequest(&out).Get("/api/agent/sessions/" + sessionID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/agent/sessions/%s: %s", sessionID, resp.String())
	}
	return out, nil
}

func prettyJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// prettyEnvelope indents an envelope string; non-JSON text is returned as is.
func prettyEnvelope(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return prettyJSON(v)
}
