package ranker

import (
	"context"
	"fmt"

	"resume-ranker-go/internal/logger"
	"resume-ranker-go/internal/storage"
	"resume-ranker-go/internal/tracing"
	"resume-ranker-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var indexTracer = otel.Tracer("resume-ranker-go/ranker/semantic_index")

// DashScope Embedding API单次请求的文本条数上限
const embedBatchSize = 10

// CorpusHandle 指向一次排序请求的临时向量集合
type CorpusHandle struct {
	Collection string // Qdrant集合名
	ChunkCount int    // 语料库中的块数
}

// SemanticIndex 基于Qdrant与Embedding服务实现SemanticSearcher。
// 每次Build创建一个唯一命名的临时集合，并发请求之间互不干扰。
type SemanticIndex struct {
	db       storage.VectorDatabase
	embedder embedding.Embedder
	prefix   string
}

var _ SemanticSearcher = (*SemanticIndex)(nil)

// NewSemanticIndex 创建语义索引适配器
func NewSemanticIndex(db storage.VectorDatabase, embedder embedding.Embedder, collectionPrefix string) *SemanticIndex {
	if collectionPrefix == "" {
		collectionPrefix = "resume_rank"
	}
	return &SemanticIndex{
		db:       db,
		embedder: embedder,
		prefix:   collectionPrefix,
	}
}

// Build 创建临时集合并写入所有章节块的向量。
// 中途失败时Build自行清理已创建的集合，调用方只需对成功返回的
// handle调用Teardown。
func (s *SemanticIndex) Build(ctx context.Context, chunks []types.SectionChunk) (*CorpusHandle, error) {
	ctx, span := indexTracer.Start(ctx, "SemanticIndex.Build")
	defer span.End()

	if len(chunks) == 0 {
		err := fmt.Errorf("语料库为空，无法构建语义索引")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	// UUIDv7保证并发请求各自拿到唯一的集合名
	id, err := uuid.NewV7()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("生成集合名失败: %w", err)
	}
	collection := fmt.Sprintf("%s_%s", s.prefix, id.String())

	span.SetAttributes(
		attribute.String("index.collection", collection),
		attribute.Int("index.chunks", len(chunks)),
		attribute.String("index.sample_content", tracing.SafeResumeContent(chunks[0].Content)),
	)

	if err := s.db.CreateCollection(ctx, collection); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		// 集合已创建，失败时就地清理，避免泄漏给调用方
		s.cleanup(ctx, collection)
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, fmt.Errorf("语料库向量化失败: %w", err)
	}
	if len(vectors) != len(chunks) {
		s.cleanup(ctx, collection)
		err := fmt.Errorf("向量数量(%d)与块数量(%d)不匹配", len(vectors), len(chunks))
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}

	points := make([]storage.VectorPoint, len(chunks))
	for i, c := range chunks {
		points[i] = storage.VectorPoint{
			ID:     storage.ChunkPointID(c),
			Vector: vectors[i],
			Payload: map[string]interface{}{
				"filename": c.Filename,
				"section":  string(c.Section),
				"content":  c.Content,
			},
		}
	}

	if err := s.db.UpsertPoints(ctx, collection, points); err != nil {
		s.cleanup(ctx, collection)
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &CorpusHandle{Collection: collection, ChunkCount: len(chunks)}, nil
}

// Query 向量化查询文本并检索最相似的章节块。
// k会被钳制到语料库的块数，返回结果按相关度降序。
func (s *SemanticIndex) Query(ctx context.Context, handle *CorpusHandle, text string, k int) ([]ChunkScore, error) {
	ctx, span := indexTracer.Start(ctx, "SemanticIndex.Query")
	defer span.End()

	if handle == nil {
		err := fmt.Errorf("语义索引句柄为空")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	if k <= 0 || k > handle.ChunkCount {
		k = handle.ChunkCount
	}

	span.SetAttributes(
		attribute.String("index.collection", handle.Collection),
		attribute.Int("index.k", k),
		attribute.String("index.query", tracing.SafeQueryText(text)),
	)

	vectors, err := s.embedAll(ctx, []string{text})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, fmt.Errorf("查询文本向量化失败: %w", err)
	}
	if len(vectors) == 0 {
		err := fmt.Errorf("查询文本向量化返回空结果")
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}

	results, err := s.db.SearchPoints(ctx, handle.Collection, vectors[0], k)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}

	scores := make([]ChunkScore, 0, len(results))
	for _, r := range results {
		cs := ChunkScore{Score: float64(r.Score)}
		if v, ok := r.Payload["filename"].(string); ok {
			cs.Filename = v
		}
		if v, ok := r.Payload["section"].(string); ok {
			cs.Section = types.SectionName(v)
		}
		if v, ok := r.Payload["content"].(string); ok {
			cs.Content = v
		}
		scores = append(scores, cs)
	}

	span.SetAttributes(attribute.Int("index.results", len(scores)))
	span.SetStatus(codes.Ok, "")
	return scores, nil
}

// Teardown 删除临时集合
func (s *SemanticIndex) Teardown(ctx context.Context, handle *CorpusHandle) error {
	if handle == nil {
		return nil
	}
	return s.db.DeleteCollection(ctx, handle.Collection)
}

// embedAll 分批调用Embedding服务
func (s *SemanticIndex) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// cleanup 尽力删除构建失败时残留的集合
func (s *SemanticIndex) cleanup(ctx context.Context, collection string) {
	if err := s.db.DeleteCollection(ctx, collection); err != nil {
		logger.Warn().Err(err).Str("collection", collection).Msg("清理构建失败的临时集合时出错")
	}
}
