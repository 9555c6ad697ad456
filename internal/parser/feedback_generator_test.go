package parser_test

import (
	"context"
	"fmt"
	"testing"

	"resume-ranker-go/internal/parser"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatModel 返回预设内容的聊天模型，用于测试JSON解析路径
type mockChatModel struct {
	response string
	err      error
	lastMsgs []*schema.Message
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.lastMsgs = messages
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.response}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockChatModel) BindTools(tools []*schema.ToolInfo) error { return nil }

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// TestLLMFeedbackGenerator_Generate 正常路径：解析JSON响应
func TestLLMFeedbackGenerator_Generate(t *testing.T) {
	mock := &mockChatModel{
		response: `{"ai_verdict": "Strong Match", "ai_feedback": "候选人具备全部必备技能。"}`,
	}
	generator := parser.NewLLMFeedbackGenerator(mock)

	result, err := generator.Generate(context.Background(),
		[]string{"Go", "Kubernetes"},
		"在Acme负责后端五年",
		"Go, Kubernetes, PostgreSQL",
	)

	require.NoError(t, err)
	assert.Equal(t, "Strong Match", result.Verdict)
	assert.Equal(t, "候选人具备全部必备技能。", result.Feedback)
	require.Len(t, mock.lastMsgs, 2, "应包含system和user两条消息")
	assert.Contains(t, mock.lastMsgs[1].Content, "Go, Kubernetes", "prompt中应包含必备技能列表")
}

// TestLLMFeedbackGenerator_ExtractsJSONFromNoise 模型在JSON外输出多余文字时仍能提取
func TestLLMFeedbackGenerator_ExtractsJSONFromNoise(t *testing.T) {
	mock := &mockChatModel{
		response: "好的，以下是评估结果：\n```json\n{\"ai_verdict\": \"Weak Match\", \"ai_feedback\": \"缺少核心技能。\"}\n```",
	}
	generator := parser.NewLLMFeedbackGenerator(mock)

	result, err := generator.Generate(context.Background(), []string{"Rust"}, "exp", "skills")
	require.NoError(t, err)
	assert.Equal(t, "Weak Match", result.Verdict)
}

// TestLLMFeedbackGenerator_StripsLeadingBOM 带BOM前缀的响应也能正常解析
func TestLLMFeedbackGenerator_StripsLeadingBOM(t *testing.T) {
	mock := &mockChatModel{
		response: "\uFEFF" + `{"ai_verdict": "Potential Fit", "ai_feedback": "部分技能匹配。"}`,
	}
	generator := parser.NewLLMFeedbackGenerator(mock)

	result, err := generator.Generate(context.Background(), []string{"Go"}, "exp", "skills")
	require.NoError(t, err)
	assert.Equal(t, "Potential Fit", result.Verdict)
}

// TestLLMFeedbackGenerator_LLMError 模型调用失败时应返回错误
func TestLLMFeedbackGenerator_LLMError(t *testing.T) {
	mock := &mockChatModel{err: fmt.Errorf("rate limited")}
	generator := parser.NewLLMFeedbackGenerator(mock)

	_, err := generator.Generate(context.Background(), []string{"Go"}, "exp", "skills")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM调用失败")
}

// TestLLMFeedbackGenerator_InvalidJSON 无法提取JSON时应返回错误
func TestLLMFeedbackGenerator_InvalidJSON(t *testing.T) {
	mock := &mockChatModel{response: "这不是JSON"}
	generator := parser.NewLLMFeedbackGenerator(mock)

	_, err := generator.Generate(context.Background(), []string{"Go"}, "exp", "skills")
	require.Error(t, err)
}

// TestLLMFeedbackGenerator_MissingFields 缺少必需字段应视为失败
func TestLLMFeedbackGenerator_MissingFields(t *testing.T) {
	mock := &mockChatModel{response: `{"ai_verdict": "", "ai_feedback": "只有点评"}`}
	generator := parser.NewLLMFeedbackGenerator(mock)

	_, err := generator.Generate(context.Background(), []string{"Go"}, "exp", "skills")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai_verdict")
}
