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

package knowledge

import (
	"context"
	"fmt"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"agentwardan/pkg/config"
	"agentwardan/pkg/log"
	"agentwardan/pkg/secrets"
)

// Base is the configured knowledge retriever plus the resources it holds.
type Base struct {
	Retriever einoretriever.Retriever
	TopK      int
	closeFn   func() error
}

// Close releases the backing client, if any.
func (b *Base) Close() error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// NewEmbedderFromConfig 根据 model.defaults.embedding 创建 Embedder
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store) (*Embedder, int, error) {
	if cfg.Model.Defaults.Embedding == "" {
		return nil, 0, fmt.Errorf("model.defaults.embedding not configured")
	}
	provider, modelKey, err := config.ParseDefaultKey(cfg.Model.Defaults.Embedding)
	if err != nil {
		return nil, 0, err
	}
	pc, ok := cfg.Model.Embedding.Providers[provider]
	if !ok {
		return nil, 0, fmt.Errorf("embedding provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, 0, fmt.Errorf("embedding model %q not configured in provider %q", modelKey, provider)
	}
	apiKey := pc.APIKey
	if store != nil {
		if apiKey, err = secrets.Resolve(ctx, store, apiKey); err != nil {
			return nil, 0, fmt.Errorf("resolve %s api_key: %w", provider, err)
		}
	}
	return NewEmbedder(EmbedderConfig{BaseURL: pc.BaseURL, APIKey: apiKey, Model: mi.Name}), mi.Dimension, nil
}

// New 根据 KnowledgeConfig 创建知识库（memory 默认；redis 走 eino-ext 向量检索）
func New(ctx context.Context, cfg *config.Config, store secrets.Store, logger *log.Logger) (*Base, error) {
	if logger == nil {
		logger = log.Nop()
	}
	kc := cfg.Knowledge
	docs := kc.Documents
	if len(docs) == 0 {
		docs = DefaultDocuments
	}
	topK := kc.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	t := kc.Type
	if t == "" {
		t = "memory"
	}
	switch t {
	case "memory":
		mem := NewMemoryRetriever(topK)
		if _, err := Seed(ctx, mem, docs); err != nil {
			return nil, fmt.Errorf("seed knowledge: %w", err)
		}
		logger.Info("knowledge base ready", "type", t, "documents", mem.Len())
		return &Base{Retriever: mem, TopK: topK}, nil
	case "redis":
		embedder, dim, err := NewEmbedderFromConfig(ctx, cfg, store)
		if err != nil {
			return nil, err
		}
		return newRedisBase(ctx, kc, embedder, dim, docs, topK, logger)
	default:
		return nil, fmt.Errorf("unsupported knowledge type: %s", t)
	}
}

func newRedisBase(ctx context.Context, kc config.KnowledgeConfig, embedder einoembed.Embedder, dim int, docs []string, topK int, logger *log.Logger) (*Base, error) {
	client := redis.NewClient(RedisOptions(kc.Redis))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if kc.SeedOnStart {
		if err := EnsureIndex(ctx, client, kc.Redis, dim); err != nil {
			_ = client.Close()
			return nil, err
		}
		idx, err := NewRedisIndexer(ctx, client, kc.Redis, embedder)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		ids, err := Seed(ctx, idx, docs)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("seed knowledge: %w", err)
		}
		logger.Info("knowledge documents indexed", "index", indexName(kc.Redis), "documents", len(ids))
	}
	ret, err := NewRedisRetriever(ctx, client, kc.Redis, topK, embedder)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Info("knowledge base ready", "type", "redis", "index", indexName(kc.Redis))
	return &Base{Retriever: ret, TopK: topK, closeFn: client.Close}, nil
}
