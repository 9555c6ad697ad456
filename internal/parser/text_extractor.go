package parser

import (
	"context"
	"path/filepath"
	"strings"

	"resume-ranker-go/internal/logger"
)

// TextExtractor 把上传的原始文件字节转换为清洗后的纯文本。
// 返回空字符串表示该文件不可用(解析失败或格式不支持)，由调用方跳过。
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// MultiFormatExtractor 按文件扩展名分派：.txt直接透传，
// 其余格式交给底层解析器(Tika或Eino PDF)。所有路径的输出都经过CleanText。
type MultiFormatExtractor struct {
	delegate TextExtractor
}

// NewMultiFormatExtractor 创建多格式文本提取器
func NewMultiFormatExtractor(delegate TextExtractor) *MultiFormatExtractor {
	return &MultiFormatExtractor{delegate: delegate}
}

// ExtractText 实现TextExtractor接口
func (m *MultiFormatExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == ".txt" {
		return CleanText(string(data)), nil
	}

	if m.delegate == nil {
		logger.Warn().Str("filename", filename).Msg("没有配置底层解析器，跳过非txt文件")
		return "", nil
	}

	text, err := m.delegate.ExtractText(ctx, data, filename)
	if err != nil {
		return "", err
	}
	return CleanText(text), nil
}

var _ TextExtractor = (*MultiFormatExtractor)(nil)
