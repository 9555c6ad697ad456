package parser_test

import (
	"testing"

	"resume-ranker-go/internal/parser"

	"github.com/stretchr/testify/assert"
)

// TestCleanText 验证乱码剥离与空白压缩
func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "保留技能符号",
			input:    "C++ C# .NET node.js user@example.com",
			expected: "C++ C# .NET node.js user@example.com",
		},
		{
			name:     "剥离乱码符号",
			input:    "Go ★ Python ✓ Rust",
			expected: "Go Python Rust",
		},
		{
			name:     "压缩空白",
			input:    "Go\t\tPython\n\n  Rust",
			expected: "Go Python Rust",
		},
		{
			name:     "空串",
			input:    "",
			expected: "",
		},
		{
			name:     "纯空白",
			input:    "  \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.CleanText(tt.input))
		})
	}
}
