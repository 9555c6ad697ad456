package parser

import (
	"regexp"
	"strings"
)

var (
	// 允许保留的字符：任意语言的字母数字、下划线、空白以及常见技能符号(. , - + # @)
	disallowedCharsRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,\-+#@]`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)

// CleanText 清洗提取出的简历文本：去掉乱码符号并压缩空白。
// C++/C#/.NET/电子邮箱等技能写法中的符号会被保留。
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := disallowedCharsRe.ReplaceAllString(text, " ")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
