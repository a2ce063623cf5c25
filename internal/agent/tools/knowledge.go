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

	einoretriever "github.com/cloudwego/eino/components/retriever"
)

type hostelInfoInput struct {
	Question string `json:"question"`
}

// NewHostelInfoTool answers policy questions (fees, mess timings) from the
// hostel knowledge base.
func NewHostelInfoTool(ret einoretriever.Retriever, topK int) Tool {
	if topK <= 0 {
		topK = 3
	}
	return NewFunc("hostel_info", "Look up hostel policies such as fees and mess timings.",
		object([]string{"question"}, map[string]SchemaProperty{
			"question": {Type: "string", Description: "the question to answer"},
		}),
		func(ctx context.Context, input map[string]any) (any, error) {
			var in hostelInfoInput
			if err := decodeArgs(input, &in); err != nil {
				return nil, err
			}
			docs, err := ret.Retrieve(ctx, in.Question, einoretriever.WithTopK(topK))
			if err != nil {
				return nil, fmt.Errorf("knowledge lookup: %w", err)
			}
			if len(docs) == 0 {
				return Message("No hostel information found for '%s'.", in.Question), nil
			}
			data := make([]any, 0, len(docs))
			for _, d := range docs {
				data = append(data, map[string]any{"id": d.ID, "content": d.Content, "score": d.Score()})
			}
			return Envelope{Summary: docs[0].Content, Data: data}, nil
		})
}
