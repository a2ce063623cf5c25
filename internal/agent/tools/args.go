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
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/mitchellh/mapstructure"

	pkgerrors "agentwardan/pkg/errors"
)

// ToolInfo converts a Tool into the eino tool description bound to the oracle.
func ToolInfo(t Tool) *schema.ToolInfo {
	s := t.Schema()
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	params := make(map[string]*schema.ParameterInfo, len(s.Properties))
	for name, p := range s.Properties {
		params[name] = &schema.ParameterInfo{
			Type:     dataType(p.Type),
			Desc:     p.Description,
			Required: required[name],
		}
	}
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func dataType(t string) schema.DataType {
	switch strings.ToLower(t) {
	case "integer":
		return schema.Integer
	case "number":
		return schema.Number
	case "boolean":
		return schema.Boolean
	case "object":
		return schema.Object
	case "array":
		return schema.Array
	default:
		return schema.String
	}
}

func validateRequired(s Schema, args map[string]any) error {
	var missing []string
	for _, name := range s.Required {
		v, ok := args[name]
		if !ok || v == nil {
			missing = append(missing, name)
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.InvalidArgf("missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// decodeArgs decodes oracle-supplied arguments into a typed input struct.
// Numbers given as strings and "true"/"false" strings are accepted.
func decodeArgs(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return pkgerrors.InvalidArgf("%v", err)
	}
	return nil
}
