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

package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"agentwardan/internal/backend"
)

// Envelope is the {summary, data} shape every tool result and turn result
// is normalized into. Data is never nil once normalized.
type Envelope struct {
	Summary string         `json:"summary"`
	Data    []any          `json:"data"`
	Error   string         `json:"error,omitempty"`
	Undo    map[string]any `json:"undo,omitempty"`
}

// Message returns an envelope with a summary and no data.
func Message(format string, args ...any) Envelope {
	return Envelope{Summary: fmt.Sprintf(format, args...), Data: []any{}}
}

// ErrorEnvelope is the terminal shape for a failed turn.
func ErrorEnvelope(err error) Envelope {
	return Envelope{Summary: "Agent error: " + err.Error(), Data: []any{}, Error: err.Error()}
}

// JSON encodes the envelope; encoding cannot fail for normalized envelopes.
func (e Envelope) JSON() string {
	if e.Data == nil {
		e.Data = []any{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Envelope{Summary: fmt.Sprintf("unencodable result: %v", err), Data: []any{}})
	}
	return string(b)
}

// Preview truncates Data to at most n records for oracle-facing messages.
func (e Envelope) Preview(n int) Envelope {
	if n <= 0 || len(e.Data) <= n {
		return e
	}
	out := e
	out.Data = append([]any(nil), e.Data[:n]...)
	out.Summary = strings.TrimSpace(e.Summary + fmt.Sprintf(" Showing %d.", n))
	return out
}

// Records returns the data entries that are JSON objects.
func (e Envelope) Records() []backend.Record {
	out := make([]backend.Record, 0, len(e.Data))
	for _, d := range e.Data {
		if r, ok := d.(map[string]any); ok {
			out = append(out, r)
		}
	}
	return out
}

// Normalize turns any tool output into an Envelope.
//   - Envelope / *Envelope and {summary, data} maps pass through with data coerced
//   - sequences become "Found N record(s)."
//   - a single record becomes "1 record."
//   - strings holding JSON are decoded first
//   - anything else becomes the summary text with empty data
func Normalize(v any) Envelope {
	switch t := v.(type) {
	case Envelope:
		t.Data = asSequence(t.Data)
		return t
	case *Envelope:
		if t == nil {
			return Message("No result.")
		}
		return Normalize(*t)
	case nil:
		return Message("No result.")
	case string:
		if s := strings.TrimSpace(t); s != "" && (s[0] == '{' || s[0] == '[') && json.Valid([]byte(s)) {
			return NormalizeAnswer(s)
		}
		return Envelope{Summary: t, Data: []any{}}
	case map[string]any:
		if env, ok := shapedEnvelope(t); ok {
			return env
		}
		return Envelope{Summary: "1 record.", Data: []any{t}}
	}

	if seq, ok := toSequence(v); ok {
		return Envelope{Summary: fmt.Sprintf("Found %d record(s).", len(seq)), Data: seq}
	}
	if rec, ok := toRecord(v); ok {
		return Normalize(rec)
	}
	return Envelope{Summary: fmt.Sprint(v), Data: []any{}}
}

// NormalizeAnswer normalizes free text produced at the end of a turn. JSON
// text is decoded first; an object whose values include a list is reported
// by its first list-valued key in key order.
func NormalizeAnswer(text string) Envelope {
	trimmed := strings.TrimSpace(text)
	var decoded any
	if trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[') && json.Unmarshal([]byte(trimmed), &decoded) == nil {
		if obj, ok := decoded.(map[string]any); ok {
			if env, ok := shapedEnvelope(obj); ok {
				return env
			}
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if list, ok := obj[k].([]any); ok {
					return Envelope{Summary: fmt.Sprintf("%s: %d item(s).", k, len(list)), Data: list}
				}
			}
		}
		return Normalize(decoded)
	}
	if trimmed == "" {
		return Message("No response.")
	}
	return Envelope{Summary: trimmed, Data: []any{}}
}

func shapedEnvelope(m map[string]any) (Envelope, bool) {
	summary, hasSummary := m["summary"]
	_, hasData := m["data"]
	if !hasSummary || !hasData {
		return Envelope{}, false
	}
	env := Envelope{Summary: fmt.Sprint(summary), Data: asSequence(m["data"])}
	if s, ok := summary.(string); ok {
		env.Summary = s
	}
	if e, ok := m["error"].(string); ok {
		env.Error = e
	}
	if u, ok := m["undo"].(map[string]any); ok {
		env.Undo = u
	}
	return env, true
}

// asSequence coerces data to a sequence: nil → [], object/scalar → [x].
func asSequence(v any) []any {
	if v == nil {
		return []any{}
	}
	if seq, ok := toSequence(v); ok {
		return seq
	}
	return []any{v}
}

func toSequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		if t == nil {
			return []any{}, true
		}
		return t, true
	case []backend.Record:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toRecord converts structs and typed maps into a generic record via JSON.
func toRecord(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false
	}
	return m, true
}
