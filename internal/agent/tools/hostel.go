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
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"agentwardan/internal/backend"
)

// Hostel holds the hostel CRUD tools. Name-keyed tools never guess: zero or
// several matches produce an envelope for the caller to act on.
type Hostel struct {
	be  Backend
	now func() time.Time
}

// HostelOption configures Hostel.
type HostelOption func(*Hostel)

// WithClock overrides the clock used for payment month/year defaults.
func WithClock(now func() time.Time) HostelOption {
	return func(h *Hostel) { h.now = now }
}

// NewHostel 创建宿舍工具集
func NewHostel(be Backend, opts ...HostelOption) *Hostel {
	h := &Hostel{be: be, now: time.Now}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterHostel registers every hostel CRUD tool on reg.
func RegisterHostel(reg *Registry, be Backend, opts ...HostelOption) *Hostel {
	h := NewHostel(be, opts...)
	for _, t := range h.Tools() {
		reg.Register(t)
	}
	return h
}

// Tools returns the hostel tool catalog.
func (h *Hostel) Tools() []Tool {
	return append(append(h.studentTools(), h.roomTools()...), h.paymentTools()...)
}

// resolveStudent finds exactly one student by partial name. When the match is
// not unique it returns the envelope to hand back instead.
func (h *Hostel) resolveStudent(ctx context.Context, name string) (backend.Record, *Envelope, error) {
	matches, err := h.be.SearchStudents(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	switch len(matches) {
	case 0:
		env := Message("No student found matching '%s'.", name)
		return nil, &env, nil
	case 1:
		return matches[0], nil, nil
	default:
		env := disambiguation(name, matches)
		return nil, &env, nil
	}
}

// disambiguation lists candidates as {id, name, room_no}.
func disambiguation(name string, matches []backend.Record) Envelope {
	choices := make([]any, 0, len(matches))
	for _, m := range matches {
		room := backend.String(m, "room_no")
		if room == "" {
			room = "Unassigned"
		}
		id, _ := backend.Int(m, "id")
		choices = append(choices, map[string]any{
			"id":      id,
			"name":    backend.String(m, "name"),
			"room_no": room,
		})
	}
	return Envelope{
		Summary: fmt.Sprintf("Multiple students match '%s'. Which one did you mean?", name),
		Data:    choices,
	}
}

func confirmation(summary string, payload map[string]any) Envelope {
	payload["confirm"] = true
	return Envelope{Summary: summary, Data: []any{payload}}
}

func single(summary string, rec backend.Record) Envelope {
	if rec == nil {
		return Envelope{Summary: summary, Data: []any{}}
	}
	return Envelope{Summary: summary, Data: []any{rec}}
}

// FormatINR renders whole rupees with thousands separators, keeping paise
// only when present: 32000 → "₹32,000", 1250.5 → "₹1,250.50".
func FormatINR(v float64) string {
	neg := v < 0
	v = math.Abs(v)
	whole := math.Floor(v)
	frac := math.Round((v - whole) * 100)
	if frac >= 100 {
		whole++
		frac = 0
	}
	digits := strconv.FormatFloat(whole, 'f', 0, 64)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := "₹" + b.String()
	if frac > 0 {
		out += fmt.Sprintf(".%02d", int(frac))
	}
	if neg {
		out = "-" + out
	}
	return out
}
