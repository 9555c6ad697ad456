package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"resume-ranker-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// LLMFeedbackGenerator 封装LLM客户端和Prompt逻辑，为单个候选人生成
// 简短的录用倾向判定与一句话点评。评估纯属附加信息，不影响排序。
type LLMFeedbackGenerator struct {
	llmModel         model.ToolCallingChatModel
	promptTemplate   string
	sectionTextLimit int // 传给模型的单个章节文本长度上限(rune)
}

// FeedbackGeneratorOption 是评语生成器的配置选项
type FeedbackGeneratorOption func(*LLMFeedbackGenerator)

// WithFeedbackPromptTemplate 设置自定义提示词模板
func WithFeedbackPromptTemplate(template string) FeedbackGeneratorOption {
	return func(g *LLMFeedbackGenerator) {
		g.promptTemplate = template
	}
}

// WithSectionTextLimit 设置章节文本长度上限
func WithSectionTextLimit(limit int) FeedbackGeneratorOption {
	return func(g *LLMFeedbackGenerator) {
		g.sectionTextLimit = limit
	}
}

// NewLLMFeedbackGenerator 创建一个新的评语生成器实例
func NewLLMFeedbackGenerator(llmModel model.ToolCallingChatModel, options ...FeedbackGeneratorOption) *LLMFeedbackGenerator {
	generator := &LLMFeedbackGenerator{
		llmModel:         llmModel,
		sectionTextLimit: 3000,
	}

	generator.promptTemplate = `你是一位资深的技术招聘专家。请基于下面的【岗位必备技能】以及候选人简历的【工作经历】和【技能】两个章节，给出简短的匹配度判定。

**请严格按照以下JSON格式输出，禁止输出JSON之外的任何文字或Markdown标记：**
{
  "ai_verdict": "一句话判定，例如 'Strong Match'、'Potential Fit' 或 'Weak Match'",
  "ai_feedback": "不超过两句话的点评，指出候选人与必备技能的主要契合点或差距"
}

【岗位必备技能】:
%s

【工作经历】:
"""
%s
"""

【技能】:
"""
%s
"""`

	for _, opt := range options {
		opt(generator)
	}

	return generator
}

// feedbackJSON 模型输出的JSON结构
type feedbackJSON struct {
	AIVerdict  string `json:"ai_verdict"`
	AIFeedback string `json:"ai_feedback"`
}

// Generate 为单个候选人生成判定与点评
func (g *LLMFeedbackGenerator) Generate(ctx context.Context, requiredSkills []string, experienceText, skillsText string) (*types.FeedbackResult, error) {
	if g.llmModel == nil {
		return nil, fmt.Errorf("LLMFeedbackGenerator: llmModel 未初始化")
	}

	prompt := fmt.Sprintf(g.promptTemplate,
		strings.Join(requiredSkills, ", "),
		truncateRunes(experienceText, g.sectionTextLimit),
		truncateRunes(skillsText, g.sectionTextLimit),
	)

	messages := []*einoschema.Message{
		einoschema.SystemMessage("你是一位专注于人岗匹配分析的AI招聘助手。"),
		einoschema.UserMessage(prompt),
	}

	response, err := g.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLMFeedbackGenerator: LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("LLMFeedbackGenerator: LLM返回空响应")
	}

	processedContent := strings.TrimPrefix(response.Content, "\uFEFF")

	jsonStr := extractJSONObject(processedContent)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMFeedbackGenerator: 无法从LLM响应中提取JSON: %s", processedContent)
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var result feedbackJSON
	// 先按原样解析，失败后尝试修复字符串内部未转义的引号再试一次
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		fixedJsonStr := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixedJsonStr), &result); jsonErr != nil {
			return nil, fmt.Errorf("LLMFeedbackGenerator: 解析LLM的JSON响应失败(已尝试修复): %w, 原始JSON: %s", err, jsonStr)
		}
	}

	if strings.TrimSpace(result.AIVerdict) == "" {
		return nil, fmt.Errorf("LLMFeedbackGenerator: 响应缺少 ai_verdict 字段")
	}
	if strings.TrimSpace(result.AIFeedback) == "" {
		return nil, fmt.Errorf("LLMFeedbackGenerator: 响应缺少 ai_feedback 字段")
	}

	return &types.FeedbackResult{
		Verdict:  strings.TrimSpace(result.AIVerdict),
		Feedback: strings.TrimSpace(result.AIFeedback),
	}, nil
}

// truncateRunes 按rune截断文本
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

// extractJSONObject 通过花括号配对从文本中提取第一个完整的JSON对象
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 会遍历 src，将任何位于字符串字面量内部但并非"真正结束"的双引号转义，
// 以保证整个 JSON 在 Go 端能够正常反序列化。
// 它通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				// 当前在字符串里，检查这是不是字符串的真正结束
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					// 字符串内部的裸引号，补上转义
					b.WriteString("\\\"")
				}
			}
			escaped = false

		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)

		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
