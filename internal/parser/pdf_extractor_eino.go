package parser

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"resume-ranker-go/internal/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取文本。只处理PDF，
// 其他格式返回空文本让调用方跳过。不依赖外部Tika服务器时的备选方案。
type EinoPDFTextExtractor struct {
	parser *pdf.PDFParser
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器。
// 配置为不按页面分割，获取整个文档的连续文本。
func NewEinoPDFTextExtractor(ctx context.Context) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	return &EinoPDFTextExtractor{parser: p}, nil
}

var _ TextExtractor = (*EinoPDFTextExtractor)(nil)

// ExtractText 实现TextExtractor接口
func (e *EinoPDFTextExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		logger.Warn().Str("filename", filename).Msg("Eino解析器仅支持PDF，跳过该文件")
		return "", nil
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(filename),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF解析失败 (%s): %w", filename, err)
	}

	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF解析未返回任何文档 (%s)", filename)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}

	logger.Debug().
		Str("filename", filename).
		Int("text_length", sb.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Eino PDF文本提取完成")

	return sb.String(), nil
}
