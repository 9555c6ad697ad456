package parser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-ranker-go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTikaTextExtractor_ExtractText 验证Tika提取请求的头信息与响应处理
func TestTikaTextExtractor_ExtractText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "resume.pdf", r.Header.Get("X-Tika-Resource-Name"))
		w.Write([]byte("Extracted resume text from PDF"))
	}))
	defer server.Close()

	extractor := parser.NewTikaTextExtractor(server.URL)
	text, err := extractor.ExtractText(context.Background(), []byte("%PDF-1.4 fake"), "resume.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Extracted resume text from PDF", text)
}

// TestTikaTextExtractor_DisableAnnotations 关闭注释提取时应设置对应请求头
func TestTikaTextExtractor_DisableAnnotations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.Header.Get("X-Tika-PDFExtractAnnotationText"))
		w.Write([]byte("text"))
	}))
	defer server.Close()

	extractor := parser.NewTikaTextExtractor(server.URL, parser.WithAnnotations(false))
	_, err := extractor.ExtractText(context.Background(), []byte("%PDF-1.4"), "resume.pdf")
	require.NoError(t, err)
}

// TestTikaTextExtractor_FetchesMetadataWhenEnabled 开启元数据模式时应额外请求 /meta
func TestTikaTextExtractor_FetchesMetadataWhenEnabled(t *testing.T) {
	metaCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tika":
			w.Write([]byte("text"))
		case "/meta":
			metaCalled = true
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Content-Type": "application/pdf", "xmpTPg:NPages": "2"}`))
		default:
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	extractor := parser.NewTikaTextExtractor(server.URL, parser.WithMetadata(true))
	_, err := extractor.ExtractText(context.Background(), []byte("%PDF-1.4"), "resume.pdf")

	require.NoError(t, err)
	assert.True(t, metaCalled, "应请求 /meta 端点")
}

// TestTikaTextExtractor_ExtractMetadata 元数据提取与JSON解析
func TestTikaTextExtractor_ExtractMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/meta", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Content-Type": "application/pdf", "dc:creator": "word"}`))
	}))
	defer server.Close()

	extractor := parser.NewTikaTextExtractor(server.URL)
	metadata, err := extractor.ExtractMetadata(context.Background(), []byte("%PDF-1.4"), "resume.pdf")

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", metadata["Content-Type"])
	assert.Equal(t, "word", metadata["dc:creator"])
}

// TestTikaTextExtractor_ServerError Tika返回错误状态码时应返回错误
func TestTikaTextExtractor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	extractor := parser.NewTikaTextExtractor(server.URL)
	_, err := extractor.ExtractText(context.Background(), []byte("broken"), "resume.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

// TestMultiFormatExtractor_TxtPassthrough txt文件不经过底层解析器
func TestMultiFormatExtractor_TxtPassthrough(t *testing.T) {
	extractor := parser.NewMultiFormatExtractor(nil)

	text, err := extractor.ExtractText(context.Background(), []byte("Go ✓ developer\n\nwith  skills"), "resume.txt")
	require.NoError(t, err)
	// 透传路径同样要经过文本清洗
	assert.Equal(t, "Go developer with skills", text)
}

// TestMultiFormatExtractor_NoDelegate 没有底层解析器时非txt文件被视为不可用
func TestMultiFormatExtractor_NoDelegate(t *testing.T) {
	extractor := parser.NewMultiFormatExtractor(nil)

	text, err := extractor.ExtractText(context.Background(), []byte("%PDF-1.4"), "resume.pdf")
	require.NoError(t, err)
	assert.Empty(t, text, "没有解析器时应返回空文本让调用方跳过")
}

// TestMultiFormatExtractor_DelegateOutputCleaned 委托解析结果也要经过清洗
func TestMultiFormatExtractor_DelegateOutputCleaned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Java ★  Spring\n\nBoot"))
	}))
	defer server.Close()

	extractor := parser.NewMultiFormatExtractor(parser.NewTikaTextExtractor(server.URL))
	text, err := extractor.ExtractText(context.Background(), []byte("fake"), "resume.docx")
	require.NoError(t, err)
	assert.Equal(t, "Java Spring Boot", text)
}
