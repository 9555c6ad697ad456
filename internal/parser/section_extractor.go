package parser

import (
	"regexp"
	"sort"
	"strings"

	"resume-ranker-go/internal/types"
)

// sectionPattern 单个章节标签及其标题同义词模式
type sectionPattern struct {
	name types.SectionName
	re   *regexp.Regexp
}

// 每个标签一个大小写不敏感的模式。标题词必须作为独立token出现
// (前后不能紧邻字母数字或下划线)，第1捕获组是标题词本身。
var sectionPatterns = []sectionPattern{
	{types.SectionSummary, regexp.MustCompile(`(?i)(?:^|[^0-9A-Za-z_])(professional summary|career summary|summary|profile|objective|about me)(?:[^0-9A-Za-z_]|$)`)},
	{types.SectionExperience, regexp.MustCompile(`(?i)(?:^|[^0-9A-Za-z_])(professional experience|work experience|employment history|work history|experience)(?:[^0-9A-Za-z_]|$)`)},
	{types.SectionSkills, regexp.MustCompile(`(?i)(?:^|[^0-9A-Za-z_])(technical skills|core competencies|skills|technologies)(?:[^0-9A-Za-z_]|$)`)},
	{types.SectionProjects, regexp.MustCompile(`(?i)(?:^|[^0-9A-Za-z_])(personal projects|key projects|projects|portfolio)(?:[^0-9A-Za-z_]|$)`)},
}

// sectionMatch 一个标签在文本中的首次命中位置
type sectionMatch struct {
	name       types.SectionName
	start      int // 标题词的起始偏移
	headingEnd int // 标题词的结束偏移，章节内容从这里开始
}

// SectionExtractor 基于标题启发式把简历文本切分为带标签的章节
type SectionExtractor struct{}

// NewSectionExtractor 创建章节提取器
func NewSectionExtractor() *SectionExtractor {
	return &SectionExtractor{}
}

// Extract 提取文本中的章节。
// 每个标签只取其模式的首次命中作为章节起点，即使标题词在后文再次出现。
// 章节内容从标题词之后延伸到下一个命中标签的起点(或文本末尾)，
// 剥离标题词及紧随的冒号后若为空则丢弃。一个标签都没命中时返回空map，
// 由调用方合成general兜底章节。
//
// 已知局限：某标签的同义词若先出现在其他章节正文中，该位置仍会被当作
// 章节起点。重复标题的预期行为未定义，这里保持首次命中语义。
func (e *SectionExtractor) Extract(text string) map[types.SectionName]string {
	sections := make(map[types.SectionName]string)
	if strings.TrimSpace(text) == "" {
		return sections
	}

	var matches []sectionMatch
	for _, p := range sectionPatterns {
		loc := p.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		// loc[2]/loc[3] 是第1捕获组(标题词本身)的边界
		matches = append(matches, sectionMatch{
			name:       p.name,
			start:      loc[2],
			headingEnd: loc[3],
		})
	}

	if len(matches) == 0 {
		return sections
	}

	// 按起始偏移排序，相邻命中之间即为章节边界
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].start < matches[j].start
	})

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		if end < m.headingEnd {
			// 下一个标题与本标题词重叠，本章节没有内容
			continue
		}

		content := text[m.headingEnd:end]
		content = strings.TrimLeft(content, ":：")
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		sections[m.name] = content
	}

	return sections
}
