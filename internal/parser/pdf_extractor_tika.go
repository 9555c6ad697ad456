package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"resume-ranker-go/internal/logger"
)

// TikaTextExtractor 基于Apache Tika服务器的通用文档文本提取器。
// Tika自带格式探测，PDF/DOCX/DOC/RTF等都走同一个 /tika 端点。
type TikaTextExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 是否提取链接注释文本(仅PDF生效)
	extractAnnotations bool
	// 是否额外请求 /meta 端点并记录文档元数据
	fetchMetadata bool
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaTextExtractor)

// WithAnnotations 配置是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaTextExtractor) {
		e.extractAnnotations = extract
	}
}

// WithMetadata 配置是否在提取文本的同时请求并记录文档元数据
func WithMetadata(fetch bool) TikaOption {
	return func(e *TikaTextExtractor) {
		e.fetchMetadata = fetch
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTextExtractor) {
		e.Client.Timeout = timeout
	}
}

var _ TextExtractor = (*TikaTextExtractor)(nil)

// NewTikaTextExtractor 创建一个新的Tika文本提取器
func NewTikaTextExtractor(serverURL string, options ...TikaOption) *TikaTextExtractor {
	extractor := &TikaTextExtractor{
		ServerURL: serverURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
		extractAnnotations: true,
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// ExtractText 实现TextExtractor接口，从文件字节中提取纯文本
func (e *TikaTextExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	startTime := time.Now()

	url := fmt.Sprintf("%s/tika", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeForFilename(filename))
	req.Header.Set("Accept", "text/plain")
	if filename != "" {
		req.Header.Set("X-Tika-Resource-Name", filename)
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	text := string(textBytes)
	logger.Debug().
		Str("filename", filename).
		Int("text_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Tika文本提取完成")

	// 元数据仅用于排查解析质量问题，失败不影响提取结果
	if e.fetchMetadata {
		if metadata, metaErr := e.ExtractMetadata(ctx, data, filename); metaErr != nil {
			logger.Warn().Err(metaErr).Str("filename", filename).Msg("获取文档元数据失败")
		} else {
			logger.Debug().
				Str("filename", filename).
				Interface("content_type", metadata["Content-Type"]).
				Interface("page_count", metadata["xmpTPg:NPages"]).
				Msg("文档元数据")
		}
	}

	return text, nil
}

// ExtractMetadata 提取文档元数据(Tika /meta 端点)
func (e *TikaTextExtractor) ExtractMetadata(ctx context.Context, data []byte, filename string) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/meta", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeForFilename(filename))
	req.Header.Set("Accept", "application/json")
	if filename != "" {
		req.Header.Set("X-Tika-Resource-Name", filename)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	metadataBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取Tika响应失败: %w", err)
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}

	return metadata, nil
}

// contentTypeForFilename 按扩展名推断Content-Type，未知类型交给Tika自动探测
func contentTypeForFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
