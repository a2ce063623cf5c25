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

// Package knowledge answers hostel information questions (fees, mess timings)
// from a small document set, behind eino's retriever and indexer interfaces.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// DefaultDocuments seed the knowledge base when none are configured.
var DefaultDocuments = []string{
	"Hostel fees is 5000 per semester.",
	"Mess timings are 8AM, 1PM, 8PM.",
}

const defaultTopK = 3

// MemoryRetriever 内存知识库：按查询词重合度打分，同时实现 Indexer 以便 Seed 复用
type MemoryRetriever struct {
	mu   sync.RWMutex
	docs []*schema.Document
	topK int
}

var (
	_ einoretriever.Retriever = (*MemoryRetriever)(nil)
	_ einoindexer.Indexer     = (*MemoryRetriever)(nil)
)

// NewMemoryRetriever creates an empty in-memory knowledge base.
func NewMemoryRetriever(topK int) *MemoryRetriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &MemoryRetriever{topK: topK}
}

// Store 实现 indexer.Indexer；缺省 ID 按序生成
func (m *MemoryRetriever) Store(ctx context.Context, docs []*schema.Document, opts ...einoindexer.Option) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		doc := &schema.Document{ID: d.ID, Content: d.Content, MetaData: d.MetaData}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("doc-%d", len(m.docs)+1)
		}
		m.docs = append(m.docs, doc)
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// Retrieve 实现 retriever.Retriever
func (m *MemoryRetriever) Retrieve(ctx context.Context, query string, opts ...einoretriever.Option) ([]*schema.Document, error) {
	options := einoretriever.GetCommonOptions(&einoretriever.Options{}, opts...)
	topK := m.topK
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}
	threshold := 0.0
	if options.ScoreThreshold != nil {
		threshold = *options.ScoreThreshold
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*schema.Document{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*schema.Document, 0, len(m.docs))
	for _, d := range m.docs {
		score := overlap(terms, tokenize(d.Content))
		if score <= 0 || score < threshold {
			continue
		}
		doc := &schema.Document{ID: d.ID, Content: d.Content, MetaData: map[string]any{}}
		for k, v := range d.MetaData {
			doc.MetaData[k] = v
		}
		out = append(out, doc.WithScore(score))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score() > out[j].Score() })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Len reports how many documents are stored.
func (m *MemoryRetriever) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "what": true, "when": true,
	"of": true, "per": true, "for": true, "to": true, "in": true, "and": true, "me": true, "tell": true,
}

// tokenize 小写分词并去停用词，结果去重
func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out[strings.TrimSuffix(f, "s")] = true
	}
	return out
}

// overlap is the share of query terms present in the document.
func overlap(query, doc map[string]bool) float64 {
	hit := 0
	for t := range query {
		if doc[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(query))
}

// Seed stores texts through idx, one document each.
func Seed(ctx context.Context, idx einoindexer.Indexer, texts []string) ([]string, error) {
	docs := make([]*schema.Document, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		docs = append(docs, &schema.Document{ID: fmt.Sprintf("hostel-%d", i+1), Content: t})
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return idx.Store(ctx, docs)
}
