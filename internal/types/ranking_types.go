package types

// SectionName 表示简历章节名称
type SectionName string

const (
	// SectionSummary 个人概述章节
	SectionSummary SectionName = "summary"
	// SectionExperience 工作经历章节
	SectionExperience SectionName = "experience"
	// SectionSkills 技能章节
	SectionSkills SectionName = "skills"
	// SectionProjects 项目经历章节
	SectionProjects SectionName = "projects"
	// SectionGeneral 未识别出任何章节时的兜底章节
	SectionGeneral SectionName = "general"
)

// OrderedSectionNames 章节提取时使用的固定有序标签集，
// general 不在其中：它只由流水线在零命中时合成。
var OrderedSectionNames = []SectionName{
	SectionSummary,
	SectionExperience,
	SectionSkills,
	SectionProjects,
}

// ResumeDocument 表示一份请求内的简历文档。
// 以文件名为身份标识（同一请求内唯一），提取完成后不可变，
// 生命周期完全归属于单次排序请求。
type ResumeDocument struct {
	Filename string                 // 文件名，请求内唯一
	FullText string                 // 清洗后的完整文本
	Sections map[SectionName]string // 章节名到章节文本的映射
}

// SectionChunk 提交给语义索引的 (文件名, 章节, 文本) 三元组。
// 仅在一次索引构建+查询期间存在。
type SectionChunk struct {
	Filename string      `json:"filename"`
	Section  SectionName `json:"section"`
	Content  string      `json:"content"`
}

// SemanticCandidate 每份简历中与岗位描述最匹配的单个章节。
// 不变式：每个文件名至多一个候选；同一简历多个章节命中时取分数最优者。
type SemanticCandidate struct {
	Filename string      // 简历文件名
	Score    float64     // 归一化后的 0..1 匹配度分数，越高越好
	Section  SectionName // 最佳匹配章节名
	Excerpt  string      // 形如 "[SKILLS] ..." 的最佳匹配片段
}

// RankedCandidate 在语义候选基础上叠加技能匹配结果的最终候选。
// 不变式：MatchedSkills ∪ MissingSkills == 去重清洗后的必备技能列表，且二者不相交。
type RankedCandidate struct {
	Rank                int      `json:"rank"`
	Filename            string   `json:"filename"`
	SemanticScore       float64  `json:"semantic_score"`
	SkillMatchCount     int      `json:"skill_match_count"`
	TotalSkillsRequired int      `json:"total_skills_required"`
	MatchedSkills       []string `json:"matched_skills"`
	MissingSkills       []string `json:"missing_skills"`
	ContentPreview      string   `json:"content_preview"`
	KeyMatchingChunk    string   `json:"key_matching_chunk"`
	AIVerdict           string   `json:"ai_verdict"`
	AIFeedback          string   `json:"ai_feedback"`
}

// RankingResult 一次排序请求的完整结果，构建一次、返回后即丢弃。
type RankingResult struct {
	JobTitle              string            `json:"job_title"`
	TotalResumesProcessed int               `json:"total_resumes_processed"`
	TopCandidates         []RankedCandidate `json:"top_candidates"`
	ProcessingTime        float64           `json:"processing_time"`
	Summary               map[string]int    `json:"summary"`
}

// FeedbackResult 生成式模型对单个候选人的评语
type FeedbackResult struct {
	Verdict  string `json:"ai_verdict"`
	Feedback string `json:"ai_feedback"`
}

const (
	// FeedbackPlaceholder 未启用生成式评语时的占位值
	FeedbackPlaceholder = "N/A"
	// FeedbackErrorVerdict 单个候选人评语生成失败时的哨兵结论
	FeedbackErrorVerdict = "Error"
	// FeedbackErrorText 单个候选人评语生成失败时的兜底说明
	FeedbackErrorText = "Could not generate AI feedback."
)
