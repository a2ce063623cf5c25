package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwardan/pkg/config"
)

func TestMemoryRetriever_Ranking(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRetriever(2)
	ids, err := Seed(ctx, m, DefaultDocuments)
	require.NoError(t, err)
	assert.Equal(t, []string{"hostel-1", "hostel-2"}, ids)
	assert.Equal(t, 2, m.Len())

	docs, err := m.Retrieve(ctx, "What is the hostel fee?")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "5000")
	assert.InDelta(t, 1.0, docs[0].Score(), 1e-9)

	docs, err = m.Retrieve(ctx, "mess timings")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "8AM")
}

func TestMemoryRetriever_Options(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRetriever(5)
	_, err := m.Store(ctx, []*schema.Document{
		{Content: "hostel gym opens at 6AM"},
		{Content: "hostel library opens at 9AM"},
		{Content: "laundry"},
	})
	require.NoError(t, err)

	docs, err := m.Retrieve(ctx, "hostel opens", einoretriever.WithTopK(1))
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = m.Retrieve(ctx, "hostel gym", einoretriever.WithScoreThreshold(0.9))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)

	docs, err = m.Retrieve(ctx, "the a is")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSeed_SkipsBlank(t *testing.T) {
	m := NewMemoryRetriever(0)
	ids, err := Seed(context.Background(), m, []string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, m.Len())
}

func TestEmbedder_EmbedStrings(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	e := NewEmbedder(EmbedderConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "text-embedding-3-small"})
	vecs, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, vecs)
	assert.Equal(t, "text-embedding-3-small", got.Model)
	assert.Equal(t, []string{"a", "b"}, got.Input)
}

func TestEmbedder_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewEmbedder(EmbedderConfig{BaseURL: srv.URL, APIKey: "bad"}).EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = NewEmbedder(EmbedderConfig{BaseURL: srv.URL}).EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 vectors")

	vecs, err := NewEmbedder(EmbedderConfig{BaseURL: srv.URL}).EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestNew_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Knowledge.Documents = []string{"Visitors allowed until 7PM."}
	b, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, defaultTopK, b.TopK)

	docs, err := b.Retriever.Retrieve(context.Background(), "visitors")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestNew_UnsupportedType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Knowledge.Type = "milvus"
	_, err := New(context.Background(), cfg, nil, nil)
	require.Error(t, err)
}

func TestNewEmbedderFromConfig(t *testing.T) {
	cfg := &config.Config{}
	_, _, err := NewEmbedderFromConfig(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg.Model.Defaults.Embedding = "openai.small"
	cfg.Model.Embedding.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "k", Models: map[string]config.ModelInfo{"small": {Name: "text-embedding-3-small", Dimension: 1536}}},
	}
	e, dim, err := NewEmbedderFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1536, dim)
	assert.Equal(t, "text-embedding-3-small", e.model)
}

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions(config.RedisConfig{DB: 2})
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 2, opts.Protocol)
	assert.True(t, opts.UnstableResp3)
	assert.Equal(t, defaultIndex, indexName(config.RedisConfig{}))
	assert.Equal(t, "kb:", keyPrefix(config.RedisConfig{KeyPrefix: "kb:"}))
}
