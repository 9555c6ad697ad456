package parser_test

import (
	"testing"

	"resume-ranker-go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSkillMatcher_WholeTokenOnly 整词匹配：java不应命中javascript
func TestSkillMatcher_WholeTokenOnly(t *testing.T) {
	matcher := parser.NewSkillMatcher()

	matched, missing := matcher.Match("senior javascript developer", []string{"Java"})
	assert.Empty(t, matched, "java不应命中javascript内部")
	assert.Equal(t, []string{"Java"}, missing)

	matched, missing = matcher.Match("senior java developer", []string{"Java"})
	assert.Equal(t, []string{"Java"}, matched)
	assert.Empty(t, missing)
}

// TestSkillMatcher_SpecialCharacters 特殊字符按字面匹配
func TestSkillMatcher_SpecialCharacters(t *testing.T) {
	matcher := parser.NewSkillMatcher()

	matched, _ := matcher.Match("proficient in c++ and c#", []string{"C++", "C#"})
	assert.Equal(t, []string{"C++", "C#"}, matched, "C++和C#应大小写不敏感地命中字面写法")

	// 孤立的"net"不应让VB.NET误报
	_, missing := matcher.Match("worked on network infrastructure", []string{"VB.NET"})
	assert.Equal(t, []string{"VB.NET"}, missing)

	matched, _ = matcher.Match("built services on vb.net for years", []string{"VB.NET"})
	assert.Equal(t, []string{"VB.NET"}, matched)
}

// TestSkillMatcher_Partition matched与missing应恰好划分required且保持顺序
func TestSkillMatcher_Partition(t *testing.T) {
	matcher := parser.NewSkillMatcher()

	required := []string{"Python", "SQL", "AWS", "Kubernetes"}
	text := "Experienced with python and aws in production."

	matched, missing := matcher.Match(text, required)

	assert.Equal(t, []string{"Python", "AWS"}, matched, "matched应保持required的相对顺序")
	assert.Equal(t, []string{"SQL", "Kubernetes"}, missing, "missing应保持required的相对顺序")
	require.Len(t, matched, 2)
	require.Len(t, missing, 2)

	// 并集恰好等于required，且不相交
	seen := make(map[string]bool)
	for _, s := range append(append([]string{}, matched...), missing...) {
		assert.False(t, seen[s], "matched与missing不应有交集")
		seen[s] = true
	}
	for _, s := range required {
		assert.True(t, seen[s], "required中的每个技能都应出现在matched或missing中")
	}
}

// TestSkillMatcher_BlankSkillsIgnored 空白技能应被忽略
func TestSkillMatcher_BlankSkillsIgnored(t *testing.T) {
	matcher := parser.NewSkillMatcher()

	matched, missing := matcher.Match("go developer", []string{" Go ", "", "   ", "Rust"})
	assert.Equal(t, []string{"Go"}, matched, "技能应去除首尾空白后匹配")
	assert.Equal(t, []string{"Rust"}, missing)
}

// TestSkillMatcher_Count 命中数应与matched长度一致
func TestSkillMatcher_Count(t *testing.T) {
	matcher := parser.NewSkillMatcher()
	count := matcher.Count("python sql aws kubernetes", []string{"Python", "SQL", "AWS", "Kubernetes"})
	assert.Equal(t, 4, count)
}
