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

	"agentwardan/internal/backend"
)

// Schema 工具参数 JSON Schema（仅 object 顶层）
type Schema struct {
	Type        string                    `json:"type"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Tool is one named operation in the registry. Execute returns either a raw
// value (record, sequence, scalar) or an Envelope; the registry normalizes it.
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// Backend is the subset of the HMS client the hostel tools call.
type Backend interface {
	SearchStudents(ctx context.Context, name string) ([]backend.Record, error)
	ListStudents(ctx context.Context, roomNo string) ([]backend.Record, error)
	GetStudent(ctx context.Context, id int) (backend.Record, error)
	CreateStudent(ctx context.Context, data backend.Record) (backend.Record, error)
	UpdateStudent(ctx context.Context, id int, data backend.Record) (backend.Record, error)
	DeleteStudent(ctx context.Context, id int) (backend.Record, error)
	ListRooms(ctx context.Context, status string) ([]backend.Record, error)
	GetRoom(ctx context.Context, roomNo string) (backend.Record, error)
	CreateRoom(ctx context.Context, data backend.Record) (backend.Record, error)
	UpdateRoom(ctx context.Context, roomNo string, data backend.Record) (backend.Record, error)
	DeleteRoom(ctx context.Context, roomNo string) (backend.Record, error)
	StudentPayments(ctx context.Context, name string) ([]backend.Record, error)
	ListPayments(ctx context.Context, status string, studentID int) ([]backend.Record, error)
	CreatePaymentByName(ctx context.Context, name string, data backend.Record) (backend.Record, error)
	UpdatePayment(ctx context.Context, id int, data backend.Record) (backend.Record, error)
}

// funcTool adapts a plain function to Tool.
type funcTool struct {
	name   string
	desc   string
	schema Schema
	run    func(ctx context.Context, input map[string]any) (any, error)
}

func (f *funcTool) Name() string        { return f.name }
func (f *funcTool) Description() string { return f.desc }
func (f *funcTool) Schema() Schema      { return f.schema }
func (f *funcTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	return f.run(ctx, input)
}

// NewFunc builds a Tool from a function.
func NewFunc(name, desc string, schema Schema, run func(ctx context.Context, input map[string]any) (any, error)) Tool {
	if schema.Type == "" {
		schema.Type = "object"
	}
	if schema.Properties == nil {
		schema.Properties = map[string]SchemaProperty{}
	}
	return &funcTool{name: name, desc: desc, schema: schema, run: run}
}

func object(required []string, props map[string]SchemaProperty) Schema {
	return Schema{Type: "object", Properties: props, Required: required}
}
