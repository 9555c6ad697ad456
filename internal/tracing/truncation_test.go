package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	cases := []struct {
		name     string
		value    string
		expected string
	}{
		{"空值", "", ""},
		{"单字符", "张", "*"},
		{"两字符姓名", "张三", "张*"},
		{"三字符姓名", "王小明", "王*明"},
		{"手机号", "13812345678", "13*******78"},
		{"邮箱", "myemail@example.com", "my" + strings.Repeat("*", 15) + "om"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskPII(tc.value))
		})
	}
}

func TestSafeAttributeValueMasksSensitiveKeys(t *testing.T) {
	// 属性名包含敏感关键字时值应被掩码
	masked := SafeAttributeValue("candidate_email", "someone@example.com", DefaultMaxLength)
	assert.NotContains(t, masked, "someone")
	assert.Contains(t, masked, "*")

	// "filename"包含"name"，简历文件名常带候选人姓名，同样掩码
	masked = SafeAttributeValue("filename", "zhangsan_resume.pdf", DefaultMaxLength)
	assert.Contains(t, masked, "*")

	// 普通属性名只做截断
	long := strings.Repeat("a", 300)
	plain := SafeAttributeValue("collection", long, DefaultMaxLength)
	assert.LessOrEqual(t, len([]rune(plain)), DefaultMaxLength)
	assert.Contains(t, plain, "...")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	truncated := TruncateString(strings.Repeat("x", 500), 101)
	assert.LessOrEqual(t, len([]rune(truncated)), 101)
	assert.Contains(t, truncated, "...")
}

func TestSafeResumeContent(t *testing.T) {
	content := strings.Repeat("工作经历", 100)
	safe := SafeResumeContent(content)
	assert.LessOrEqual(t, len([]rune(safe)), MaxResumeLength)
}
