package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resume-ranker-go/internal/config"
	"resume-ranker-go/internal/storage"
	"resume-ranker-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQdrant_NewQdrant 测试Qdrant客户端初始化
func TestQdrant_NewQdrant(t *testing.T) {
	cfg := &config.QdrantConfig{
		Endpoint:  "http://localhost:6333",
		Dimension: 1024,
	}

	client, err := storage.NewQdrant(cfg,
		storage.WithDistanceMetric("Cosine"),
		storage.WithHttpTimeout(5*time.Second))

	require.NoError(t, err, "应该成功创建Qdrant客户端")
	require.NotNil(t, client, "客户端不应为nil")
	assert.Equal(t, 1024, client.VectorSize())
}

// TestQdrant_CollectionLifecycle 测试临时集合的创建与删除
func TestQdrant_CollectionLifecycle(t *testing.T) {
	var createdPath, deletedMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/rank_abc" && r.Method == http.MethodPut {
			createdPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": true, "status": "ok", "time": 0.001}`))
			return
		}
		if r.URL.Path == "/collections/rank_abc" && r.Method == http.MethodDelete {
			deletedMethod = r.Method
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": true, "status": "ok", "time": 0.001}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := &config.QdrantConfig{
		Endpoint:  server.URL,
		Dimension: 4,
	}

	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.CreateCollection(ctx, "rank_abc"), "创建集合应成功")
	assert.Equal(t, "/collections/rank_abc", createdPath)

	require.NoError(t, client.DeleteCollection(ctx, "rank_abc"), "删除集合应成功")
	assert.Equal(t, http.MethodDelete, deletedMethod)
}

// TestQdrant_UpsertPoints 测试向量点写入
func TestQdrant_UpsertPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/rank_abc/points" && r.Method == http.MethodPut {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "completed"}, "status": "ok", "time": 0.002}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := &config.QdrantConfig{
		Endpoint:  server.URL,
		Dimension: 4,
	}

	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	chunk := types.SectionChunk{
		Filename: "resume1.pdf",
		Section:  types.SectionSkills,
		Content:  "Go Python Kubernetes",
	}
	points := []storage.VectorPoint{
		{
			ID:     storage.ChunkPointID(chunk),
			Vector: []float64{0.1, 0.2, 0.3, 0.4},
			Payload: map[string]interface{}{
				"filename": chunk.Filename,
				"section":  string(chunk.Section),
				"content":  chunk.Content,
			},
		},
	}

	err = client.UpsertPoints(context.Background(), "rank_abc", points)
	require.NoError(t, err, "向量写入应成功")
}

// TestQdrant_UpsertPoints_DimensionMismatch 维度不匹配时应拒绝写入
func TestQdrant_UpsertPoints_DimensionMismatch(t *testing.T) {
	cfg := &config.QdrantConfig{
		Endpoint:  "http://localhost:6333",
		Dimension: 4,
	}

	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	points := []storage.VectorPoint{
		{ID: "p1", Vector: []float64{0.1, 0.2}}, // 维度为2，与配置的4不符
	}

	err = client.UpsertPoints(context.Background(), "rank_abc", points)
	require.Error(t, err, "维度不匹配时应返回错误")
}

// TestQdrant_SearchPoints 测试向量搜索
func TestQdrant_SearchPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/rank_abc/points/search" && r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": [
					{
						"id": "point-1",
						"score": 0.95,
						"payload": {
							"filename": "resume1.pdf",
							"section": "skills",
							"content": "Go Python Kubernetes"
						}
					}
				],
				"status": "ok",
				"time": 0.001
			}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := &config.QdrantConfig{
		Endpoint:  server.URL,
		Dimension: 4,
	}

	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	results, err := client.SearchPoints(context.Background(), "rank_abc", []float64{0.1, 0.2, 0.3, 0.4}, 10)
	require.NoError(t, err, "向量搜索应成功")
	require.Len(t, results, 1, "应返回一个结果")
	assert.Equal(t, "point-1", results[0].ID)
	assert.InDelta(t, 0.95, float64(results[0].Score), 0.01)
	assert.Equal(t, "resume1.pdf", results[0].Payload["filename"])
}

// TestChunkPointID_Deterministic 同一文件同一章节应得到相同的点ID
func TestChunkPointID_Deterministic(t *testing.T) {
	chunk := types.SectionChunk{Filename: "resume1.pdf", Section: types.SectionExperience, Content: "text"}
	id1 := storage.ChunkPointID(chunk)
	id2 := storage.ChunkPointID(chunk)
	assert.Equal(t, id1, id2, "点ID应该是确定性的")

	other := types.SectionChunk{Filename: "resume2.pdf", Section: types.SectionExperience, Content: "text"}
	assert.NotEqual(t, id1, storage.ChunkPointID(other), "不同文件的点ID应不同")
}
