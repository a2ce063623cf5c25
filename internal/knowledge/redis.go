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
	"strings"

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"agentwardan/pkg/config"
)

const (
	defaultIndex     = "hostel_knowledge"
	defaultKeyPrefix = "hostel:knowledge:"
	defaultBatchSize = 10
	// eino-ext redis indexer/retriever 默认字段名
	contentField = "content"
	vectorField  = "vector_content"
)

// RedisOptions 从 RedisConfig 构造 redis.Options；向量检索需 Protocol 2 + UnstableResp3
func RedisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	opts.Protocol = 2
	opts.UnstableResp3 = true
	return opts
}

func indexName(cfg config.RedisConfig) string {
	if cfg.Index != "" {
		return cfg.Index
	}
	return defaultIndex
}

func keyPrefix(cfg config.RedisConfig) string {
	if cfg.KeyPrefix != "" {
		return cfg.KeyPrefix
	}
	return defaultKeyPrefix
}

// EnsureIndex creates the RediSearch vector index over the knowledge hashes if it is missing.
func EnsureIndex(ctx context.Context, client *redis.Client, cfg config.RedisConfig, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	err := client.Do(ctx, "FT.CREATE", indexName(cfg),
		"ON", "HASH", "PREFIX", "1", keyPrefix(cfg),
		"SCHEMA",
		contentField, "TEXT",
		vectorField, "VECTOR", "FLAT", "6", "TYPE", "FLOAT32", "DIM", dim, "DISTANCE_METRIC", "COSINE",
	).Err()
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "index already exists") {
		return fmt.Errorf("create index %s: %w", indexName(cfg), err)
	}
	return nil
}

// NewRedisIndexer 基于 eino-ext redis indexer 写入知识文档
func NewRedisIndexer(ctx context.Context, client *redis.Client, cfg config.RedisConfig, embedder einoembed.Embedder) (einoindexer.Indexer, error) {
	idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
		Client:    client,
		KeyPrefix: keyPrefix(cfg),
		BatchSize: defaultBatchSize,
		Embedding: embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("redis indexer: %w", err)
	}
	return idx, nil
}

// NewRedisRetriever 基于 eino-ext redis retriever 做向量检索
func NewRedisRetriever(ctx context.Context, client *redis.Client, cfg config.RedisConfig, topK int, embedder einoembed.Embedder) (einoretriever.Retriever, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	ret, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
		Client:    client,
		Index:     indexName(cfg),
		TopK:      topK,
		Embedding: embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("redis retriever: %w", err)
	}
	return ret, nil
}
