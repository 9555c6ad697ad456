package ranker

import (
	"context"

	"resume-ranker-go/internal/types"
)

// FeedbackGenerator 为单个候选人生成判定与点评。失败只影响这一个候选人。
type FeedbackGenerator interface {
	Generate(ctx context.Context, requiredSkills []string, experienceText, skillsText string) (*types.FeedbackResult, error)
}

// ChunkScore 语义检索返回的一条原始结果
type ChunkScore struct {
	Filename string
	Section  types.SectionName
	Content  string
	Score    float64 // 余弦相似度，越大越相似
}

// SemanticSearcher 语义索引适配器。一次排序请求对应一个临时语料库：
// Build创建并填充，Query检索，Teardown删除。每次成功的Build必须恰好
// 对应一次Teardown，无论请求成功与否。
//
// 分数方向约定：Query返回的Score是相关度(越大越好)，不是距离。
type SemanticSearcher interface {
	Build(ctx context.Context, chunks []types.SectionChunk) (*CorpusHandle, error)
	Query(ctx context.Context, handle *CorpusHandle, text string, k int) ([]ChunkScore, error)
	Teardown(ctx context.Context, handle *CorpusHandle) error
}
