package ranker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"resume-ranker-go/internal/config"
	"resume-ranker-go/internal/logger"
	"resume-ranker-go/internal/parser"
	"resume-ranker-go/internal/tracing"
	"resume-ranker-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var pipelineTracer = otel.Tracer("resume-ranker-go/ranker/pipeline")

var (
	// ErrInvalidRequest 请求参数不合法(空岗位描述、空技能列表、没有文件)
	ErrInvalidRequest = errors.New("无效的排序请求")
	// ErrNoUsableResumes 所有上传的简历都无法提取出可用文本
	ErrNoUsableResumes = errors.New("没有可用的简历文本")
)

// UploadedFile 一个上传的简历文件
type UploadedFile struct {
	Filename string
	Data     []byte
}

// Request 一次排序请求的全部输入
type Request struct {
	JobTitle       string
	JobDescription string
	RequiredSkills []string
	TopN           int
	Files          []UploadedFile
}

// Pipeline 简历排序流水线。按固定顺序执行各阶段，所有阶段共享一个
// 请求作用域的rankContext，临时语料库在流水线结束时保证被释放。
type Pipeline struct {
	extractor parser.TextExtractor
	sections  *parser.SectionExtractor
	skills    *parser.SkillMatcher
	index     SemanticSearcher
	feedback  FeedbackGenerator // 为nil时跳过评语阶段
	cfg       config.RankerConfig

	feedbackTimeout time.Duration
}

// PipelineOption 流水线构造选项
type PipelineOption func(*Pipeline)

// WithFeedbackGenerator 启用生成式评语阶段
func WithFeedbackGenerator(g FeedbackGenerator, perCandidateTimeout time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.feedback = g
		p.feedbackTimeout = perCandidateTimeout
	}
}

// NewPipeline 创建排序流水线
func NewPipeline(extractor parser.TextExtractor, index SemanticSearcher, cfg config.RankerConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor:       extractor,
		sections:        parser.NewSectionExtractor(),
		skills:          parser.NewSkillMatcher(),
		index:           index,
		cfg:             cfg,
		feedbackTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rankContext 在各阶段之间传递的请求作用域状态
type rankContext struct {
	req       *Request
	startTime time.Time

	docs      []*types.ResumeDocument          // 可用简历，按上传顺序
	docByName map[string]*types.ResumeDocument // filename -> doc
	chunks    []types.SectionChunk             // 提交给语义索引的全部章节块

	handle     *CorpusHandle
	candidates []types.SemanticCandidate // 每个文件一个最佳命中，按相关度降序
	ranked     []*types.RankedCandidate

	result *types.RankingResult
}

// pipelineStage 一个命名的流水线阶段
type pipelineStage struct {
	name    string
	errType tracing.ErrorType // 该阶段失败时记录到span的错误分类
	run     func(ctx context.Context, rc *rankContext) error
}

// Rank 执行完整的排序流程。
// 无论哪个阶段失败，已构建的临时语料库都会在返回前被删除。
func (p *Pipeline) Rank(ctx context.Context, req *Request) (*types.RankingResult, error) {
	ctx, span := pipelineTracer.Start(ctx, "Pipeline.Rank")
	defer span.End()

	if err := validateRequest(req); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("rank.files", len(req.Files)),
		attribute.Int("rank.required_skills", len(req.RequiredSkills)),
		attribute.Int("rank.top_n", req.TopN),
	)

	rc := &rankContext{
		req:       req,
		startTime: time.Now(),
		docByName: make(map[string]*types.ResumeDocument),
	}

	// 临时语料库在任何退出路径上都必须释放
	defer func() {
		if rc.handle == nil {
			return
		}
		teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := p.index.Teardown(teardownCtx, rc.handle); err != nil {
			logger.Error().Err(err).Str("collection", rc.handle.Collection).Msg("释放临时语料库失败")
		}
	}()

	stages := []pipelineStage{
		{"preprocess", tracing.ErrorTypeExtraction, p.stagePreprocess},
		{"semantic_search", tracing.ErrorTypeVectorDB, p.stageSemanticSearch},
		{"skill_rerank", tracing.ErrorTypeInternal, p.stageSkillRerank},
		{"feedback", tracing.ErrorTypeLLM, p.stageFeedback},
		{"finalize", tracing.ErrorTypeInternal, p.stageFinalize},
	}

	for _, stage := range stages {
		if err := stage.run(ctx, rc); err != nil {
			errType := stage.errType
			if errors.Is(err, context.DeadlineExceeded) {
				errType = tracing.ErrorTypeTimeout
			}
			tracing.RecordErrorWithInfo(span, err, errType,
				attribute.String("rank.failed_stage", stage.name))
			return nil, fmt.Errorf("阶段 %s 失败: %w", stage.name, err)
		}
	}

	span.SetAttributes(
		attribute.Int("rank.processed", rc.result.TotalResumesProcessed),
		attribute.Int("rank.returned", len(rc.result.TopCandidates)),
	)
	if len(rc.result.TopCandidates) > 0 {
		top := rc.result.TopCandidates[0]
		span.SetAttributes(
			attribute.String("rank.top_filename",
				tracing.SafeAttributeValue("filename", top.Filename, tracing.DefaultMaxLength)),
			attribute.String("rank.top_excerpt",
				tracing.SafeResumeContent(top.KeyMatchingChunk)),
		)
	}
	span.SetStatus(codes.Ok, "")
	return rc.result, nil
}

// validateRequest 在流水线执行前拒绝不可用的输入
func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: 请求为空", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		return fmt.Errorf("%w: 岗位描述不能为空", ErrInvalidRequest)
	}
	hasSkill := false
	for _, s := range req.RequiredSkills {
		if strings.TrimSpace(s) != "" {
			hasSkill = true
			break
		}
	}
	if !hasSkill {
		return fmt.Errorf("%w: 必备技能列表不能为空", ErrInvalidRequest)
	}
	if len(req.Files) == 0 {
		return fmt.Errorf("%w: 没有上传任何简历文件", ErrInvalidRequest)
	}
	return nil
}

// stagePreprocess 提取文本、切分章节并构建语料块。
// 单个文件提取失败或文本为空只是跳过，不影响其他文件。
func (p *Pipeline) stagePreprocess(ctx context.Context, rc *rankContext) error {
	for _, file := range rc.req.Files {
		text, err := p.extractor.ExtractText(ctx, file.Data, file.Filename)
		if err != nil {
			logger.Warn().Err(err).Str("filename", file.Filename).Msg("文本提取失败，跳过该文件")
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn().Str("filename", file.Filename).Msg("提取文本为空，跳过该文件")
			continue
		}

		doc := &types.ResumeDocument{
			Filename: file.Filename,
			FullText: text,
			Sections: p.sections.Extract(text),
		}
		rc.docs = append(rc.docs, doc)
		rc.docByName[doc.Filename] = doc

		if len(doc.Sections) == 0 {
			// 没有识别出任何章节时用全文前缀兜底
			rc.chunks = append(rc.chunks, types.SectionChunk{
				Filename: doc.Filename,
				Section:  types.SectionGeneral,
				Content:  truncateRunes(text, p.cfg.GeneralSectionLimit),
			})
			continue
		}

		// 固定的章节顺序保证同样输入产生同样的语料块序列
		for _, name := range types.OrderedSectionNames {
			content, ok := doc.Sections[name]
			if !ok {
				continue
			}
			rc.chunks = append(rc.chunks, types.SectionChunk{
				Filename: doc.Filename,
				Section:  name,
				Content:  content,
			})
		}
	}

	if len(rc.docs) == 0 {
		return ErrNoUsableResumes
	}

	logger.Info().
		Int("usable_resumes", len(rc.docs)).
		Int("section_chunks", len(rc.chunks)).
		Msg("简历预处理完成")
	return nil
}

// stageSemanticSearch 构建临时语料库并用岗位描述检索，
// 按每个文件保留最佳命中做聚合。索引失败对整个请求是致命的。
func (p *Pipeline) stageSemanticSearch(ctx context.Context, rc *rankContext) error {
	handle, err := p.index.Build(ctx, rc.chunks)
	if err != nil {
		return fmt.Errorf("构建语义索引失败: %w", err)
	}
	rc.handle = handle

	k := p.cfg.SearchK
	if k <= 0 || k > len(rc.chunks) {
		k = len(rc.chunks)
	}

	scores, err := p.index.Query(ctx, handle, rc.req.JobDescription, k)
	if err != nil {
		return fmt.Errorf("语义检索失败: %w", err)
	}

	rc.candidates = aggregateBestPerFile(scores, p.cfg.ExcerptLength)
	logger.Info().
		Int("raw_hits", len(scores)).
		Int("candidates", len(rc.candidates)).
		Msg("语义检索完成")
	return nil
}

// aggregateBestPerFile 把原始(块,分数)对聚合为每个文件一个最佳候选。
// 索引返回的分数是相关度(越大越好)，这里统一归一化到0..1。
// 结果顺序继承检索结果的相关度降序，作为后续稳定排序的初始顺序。
func aggregateBestPerFile(scores []ChunkScore, excerptLength int) []types.SemanticCandidate {
	best := make(map[string]int) // filename -> index into candidates
	candidates := make([]types.SemanticCandidate, 0, len(scores))

	for _, cs := range scores {
		goodness := normalizeGoodness(cs.Score)
		idx, seen := best[cs.Filename]
		if seen {
			if goodness > candidates[idx].Score {
				candidates[idx].Score = goodness
				candidates[idx].Section = cs.Section
				candidates[idx].Excerpt = buildExcerpt(cs.Section, cs.Content, excerptLength)
			}
			continue
		}
		best[cs.Filename] = len(candidates)
		candidates = append(candidates, types.SemanticCandidate{
			Filename: cs.Filename,
			Score:    goodness,
			Section:  cs.Section,
			Excerpt:  buildExcerpt(cs.Section, cs.Content, excerptLength),
		})
	}
	return candidates
}

// normalizeGoodness 把余弦相似度[-1,1]归一化为0..1的优度分，越大越好。
// 内部排序只用这一种表示，避免距离/相关度方向混用。
func normalizeGoodness(cosine float64) float64 {
	g := (cosine + 1) / 2
	if g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}

// buildExcerpt 生成"[章节] 内容摘录..."形式的最佳匹配片段
func buildExcerpt(section types.SectionName, content string, limit int) string {
	return fmt.Sprintf("[%s] %s...", strings.ToUpper(string(section)), truncateRunes(content, limit))
}

// stageSkillRerank 对每个语义候选做技能命中统计，并按
// (技能数降序, 优度分降序, 原始顺序)稳定排序，截断到top_n。
func (p *Pipeline) stageSkillRerank(ctx context.Context, rc *rankContext) error {
	requiredCount := 0
	for _, s := range rc.req.RequiredSkills {
		if strings.TrimSpace(s) != "" {
			requiredCount++
		}
	}

	rc.ranked = make([]*types.RankedCandidate, 0, len(rc.candidates))
	for _, cand := range rc.candidates {
		doc, ok := rc.docByName[cand.Filename]
		if !ok {
			// 检索结果指向本请求之外的文件，不应发生
			logger.Warn().Str("filename", cand.Filename).Msg("语义候选没有对应的简历文档，忽略")
			continue
		}

		matched, missing := p.skills.Match(doc.FullText, rc.req.RequiredSkills)
		rc.ranked = append(rc.ranked, &types.RankedCandidate{
			Filename:            cand.Filename,
			SemanticScore:       cand.Score,
			SkillMatchCount:     len(matched),
			TotalSkillsRequired: requiredCount,
			MatchedSkills:       matched,
			MissingSkills:       missing,
			ContentPreview:      truncateRunes(doc.FullText, p.cfg.PreviewLength),
			KeyMatchingChunk:    cand.Excerpt,
			AIVerdict:           types.FeedbackPlaceholder,
			AIFeedback:          types.FeedbackPlaceholder,
		})
	}

	sort.SliceStable(rc.ranked, func(i, j int) bool {
		if rc.ranked[i].SkillMatchCount != rc.ranked[j].SkillMatchCount {
			return rc.ranked[i].SkillMatchCount > rc.ranked[j].SkillMatchCount
		}
		return rc.ranked[i].SemanticScore > rc.ranked[j].SemanticScore
	})

	topN := rc.req.TopN
	if topN <= 0 {
		topN = p.cfg.DefaultTopN
	}
	if p.cfg.MaxTopN > 0 && topN > p.cfg.MaxTopN {
		topN = p.cfg.MaxTopN
	}
	if len(rc.ranked) > topN {
		rc.ranked = rc.ranked[:topN]
	}

	for i, cand := range rc.ranked {
		cand.Rank = i + 1
	}
	return nil
}

// stageFeedback 并发为每个最终候选人生成评语。单个候选人失败只
// 影响它自己，写入哨兵值；没有配置生成器时整个阶段跳过，保留占位值。
func (p *Pipeline) stageFeedback(ctx context.Context, rc *rankContext) error {
	if p.feedback == nil || len(rc.ranked) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, cand := range rc.ranked {
		wg.Add(1)
		go func(c *types.RankedCandidate) {
			defer wg.Done()

			doc := rc.docByName[c.Filename]
			if doc == nil {
				return
			}

			genCtx, cancel := context.WithTimeout(ctx, p.feedbackTimeout)
			defer cancel()

			result, err := p.feedback.Generate(genCtx, rc.req.RequiredSkills,
				doc.Sections[types.SectionExperience],
				doc.Sections[types.SectionSkills])
			if err != nil {
				logger.Warn().Err(err).Str("filename", c.Filename).Msg("生成候选人评语失败")
				c.AIVerdict = types.FeedbackErrorVerdict
				c.AIFeedback = types.FeedbackErrorText
				return
			}
			c.AIVerdict = result.Verdict
			c.AIFeedback = result.Feedback
		}(cand)
	}
	wg.Wait()
	return nil
}

// stageFinalize 汇总为最终响应
func (p *Pipeline) stageFinalize(ctx context.Context, rc *rankContext) error {
	jobTitle := strings.TrimSpace(rc.req.JobTitle)
	if jobTitle == "" {
		jobTitle = "AI Analysis Result"
	}

	topCandidates := make([]types.RankedCandidate, len(rc.ranked))
	for i, c := range rc.ranked {
		topCandidates[i] = *c
	}

	rc.result = &types.RankingResult{
		JobTitle:              jobTitle,
		TotalResumesProcessed: len(rc.docs),
		TopCandidates:         topCandidates,
		ProcessingTime:        time.Since(rc.startTime).Seconds(),
		Summary: map[string]int{
			"resumes_processed":     len(rc.docs),
			"semantic_candidates":   len(rc.candidates),
			"final_recommendations": len(topCandidates),
		},
	}
	return nil
}

// truncateRunes 按rune截断，避免把多字节字符切成半截
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
