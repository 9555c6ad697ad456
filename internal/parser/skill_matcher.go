package parser

import (
	"regexp"
	"strings"
)

// SkillMatcher 对简历全文做整词技能命中测试
type SkillMatcher struct{}

// NewSkillMatcher 创建技能匹配器
func NewSkillMatcher() *SkillMatcher {
	return &SkillMatcher{}
}

// Match 检查每个必备技能是否以整词形式出现在文本中。
// 返回的matched与missing保持required的相对顺序，二者不相交且并集
// 恰好等于去掉空白技能后的required。匹配大小写不敏感；技能串中的
// 特殊字符按字面处理，因此"C++"匹配字面"c++"，"Java"不会命中
// "JavaScript"内部，"VB.NET"也不会被孤立的"net"误判。
func (m *SkillMatcher) Match(fullText string, requiredSkills []string) (matched []string, missing []string) {
	matched = make([]string, 0, len(requiredSkills))
	missing = make([]string, 0, len(requiredSkills))

	lowerText := strings.ToLower(fullText)

	for _, skill := range requiredSkills {
		trimmed := strings.TrimSpace(skill)
		if trimmed == "" {
			continue
		}
		if containsWholeToken(lowerText, strings.ToLower(trimmed)) {
			matched = append(matched, trimmed)
		} else {
			missing = append(missing, trimmed)
		}
	}
	return matched, missing
}

// Count 返回命中的技能数
func (m *SkillMatcher) Count(fullText string, requiredSkills []string) int {
	matched, _ := m.Match(fullText, requiredSkills)
	return len(matched)
}

// containsWholeToken 判断skill是否以整词出现在text中：命中片段的
// 紧邻前后都不能是字母数字或下划线。RE2不支持环视，这里先用转义后的
// 字面模式找出所有候选位置，再逐个校验边界字符。
func containsWholeToken(text, skill string) bool {
	re, err := regexp.Compile(regexp.QuoteMeta(skill))
	if err != nil {
		return false
	}

	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isWordByte(text[start-1]) {
			continue
		}
		if end < len(text) && isWordByte(text[end]) {
			continue
		}
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
