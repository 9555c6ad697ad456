package parser_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-ranker-go/internal/config"
	"resume-ranker-go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAliyunEmbedder_EmbedStrings 通过模拟DashScope端点测试向量化
func TestAliyunEmbedder_EmbedStrings(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req parser.AliyunOpenAIEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-v3", req.Model)

		// 输入可能是 string 或 []string
		count := 1
		if arr, ok := req.Input.([]interface{}); ok {
			count = len(arr)
		}

		resp := parser.AliyunOpenAIEmbeddingResponse{
			Object: "list",
			Model:  req.Model,
		}
		for i := 0; i < count; i++ {
			resp.Data = append(resp.Data, parser.AliyunOpenAIDataEntry{
				Object:    "embedding",
				Embedding: []float64{0.1, 0.2, 0.3, 0.4},
				Index:     i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	embeddingCfg := config.EmbeddingConfig{
		Model:      "text-embedding-v3",
		Dimensions: 4,
		BaseURL:    server.URL,
	}

	embedder, err := parser.NewAliyunEmbedder("sk-test", embeddingCfg)
	require.NoError(t, err)
	require.NotNil(t, embedder)
	assert.Equal(t, 4, embedder.GetDimensions())

	texts := []string{"候选人精通Go与分布式系统", "五年后端开发经验"}
	embeddings, err := embedder.EmbedStrings(context.Background(), texts)

	require.NoError(t, err, "向量化不应返回错误")
	require.Len(t, embeddings, len(texts), "向量数量应与输入文本数量一致")
	for i, emb := range embeddings {
		assert.Len(t, emb, 4, "第%d个向量的维度应符合配置", i)
	}
	assert.Equal(t, "Bearer sk-test", gotAuth, "应携带Bearer令牌")
}

// TestAliyunEmbedder_BaseURLNormalization 配置只写到 /v1 时也应请求embeddings端点
func TestAliyunEmbedder_BaseURLNormalization(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(parser.AliyunOpenAIEmbeddingResponse{
			Object: "list",
			Data:   []parser.AliyunOpenAIDataEntry{{Object: "embedding", Embedding: []float64{0.1}}},
		})
	}))
	defer server.Close()

	cases := []struct {
		name    string
		baseURL string
	}{
		{"只写到v1", server.URL + "/compatible-mode/v1"},
		{"带尾部斜杠", server.URL + "/compatible-mode/v1/"},
		{"完整端点", server.URL + "/compatible-mode/v1/embeddings"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			embedder, err := parser.NewAliyunEmbedder("sk-test", config.EmbeddingConfig{BaseURL: tc.baseURL})
			require.NoError(t, err)

			_, err = embedder.EmbedStrings(context.Background(), []string{"text"})
			require.NoError(t, err)
			assert.Equal(t, "/compatible-mode/v1/embeddings", gotPath)
		})
	}
}

// TestAliyunEmbedder_EmbedStrings_EmptyInput 空输入应返回空切片而非错误
func TestAliyunEmbedder_EmbedStrings_EmptyInput(t *testing.T) {
	embedder, err := parser.NewAliyunEmbedder("sk-test", config.EmbeddingConfig{})
	require.NoError(t, err)

	embeddings, err := embedder.EmbedStrings(context.Background(), nil)
	require.NoError(t, err, "空输入时不应返回错误")
	require.NotNil(t, embeddings, "返回的embeddings应该是一个空切片而非nil")
	require.Empty(t, embeddings)
}

// TestAliyunEmbedder_EmbedStrings_APIError API错误应透传给调用方
func TestAliyunEmbedder_EmbedStrings_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Invalid API key", "type": "invalid_request_error", "code": "invalid_api_key"}`))
	}))
	defer server.Close()

	embedder, err := parser.NewAliyunEmbedder("bad-key", config.EmbeddingConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.EmbedStrings(context.Background(), []string{"text"})
	require.Error(t, err, "API错误时应返回错误")
	assert.Contains(t, err.Error(), "Invalid API key")
}

// TestAliyunEmbedder_NewAliyunEmbedder_NoAPIKey 没有API Key时初始化应失败
func TestAliyunEmbedder_NewAliyunEmbedder_NoAPIKey(t *testing.T) {
	_, err := parser.NewAliyunEmbedder("", config.EmbeddingConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API密钥不能为空")
}
