package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Aliyun struct {
		APIKey    string          `yaml:"api_key"`
		APIURL    string          `yaml:"api_url"`
		Model     string          `yaml:"model"`
		Embedding EmbeddingConfig `yaml:"embedding"`
	} `yaml:"aliyun"`

	// Qdrant 向量数据库配置
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Tika服务器配置
	Tika TikaConfig `yaml:"tika"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 排序流水线配置
	Ranker RankerConfig `yaml:"ranker"`

	// 生成式评语配置
	Feedback FeedbackConfig `yaml:"feedback"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`
}

// EmbeddingConfig Aliyun Embedding 专用配置
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
}

// QdrantConfig Qdrant向量数据库配置
type QdrantConfig struct {
	Endpoint         string `yaml:"endpoint"`          // Qdrant REST 服务地址
	CollectionPrefix string `yaml:"collection_prefix"` // 临时集合名前缀
	Dimension        int    `yaml:"dimension"`         // 向量维度
	APIKey           string `yaml:"api_key,omitempty"` // (可选) Qdrant API Key
	TimeoutSeconds   int    `yaml:"timeout_seconds"`   // HTTP 超时(秒)
}

// TikaConfig Tika服务器配置结构
type TikaConfig struct {
	ServerURL    string `yaml:"server_url"`      // Tika服务器URL
	Timeout      int    `yaml:"timeout_seconds"` // 超时时间(秒)
	Type         string `yaml:"type"`            // 解析器类型，例如 "tika"
	MetadataMode string `yaml:"metadata_mode"`   // 元数据模式: "full", "minimal", "none"
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080" 或 "0.0.0.0:8080"
}

// RankerConfig 定义排序流水线的配置
type RankerConfig struct {
	SearchK             int `yaml:"search_k"`              // 语义检索召回的最大邻居数
	DefaultTopN         int `yaml:"default_top_n"`         // 默认返回候选人数
	MaxTopN             int `yaml:"max_top_n"`             // top_n 上限
	GeneralSectionLimit int `yaml:"general_section_limit"` // general 兜底章节的最大长度(字符)
	PreviewLength       int `yaml:"preview_length"`        // 响应中内容预览长度(字符)
	ExcerptLength       int `yaml:"excerpt_length"`        // 最佳匹配片段长度(字符)
}

// FeedbackConfig 定义生成式评语的配置
type FeedbackConfig struct {
	Enabled          bool    `yaml:"enabled"`            // 是否启用生成式评语
	ModelName        string  `yaml:"model_name"`         // 评语模型名称
	Temperature      float64 `yaml:"temperature"`        // 采样温度
	MaxTokens        int     `yaml:"max_tokens"`         // 最大输出token数
	GenerateTimeout  string  `yaml:"generate_timeout"`   // 单个候选人的评语生成超时，例如 "30s"
	SectionTextLimit int     `yaml:"section_text_limit"` // 传给模型的章节文本长度上限
	RequestsPerMin   int     `yaml:"requests_per_min"`   // 评语模型的QPM限制
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	// 如果未指定配置文件路径，则尝试在默认位置查找
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			"../../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".resume-ranker", "config.yaml"),
		}

		// 可执行文件所在目录及其上级
		if execPath, err := os.Executable(); err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths,
				filepath.Join(execDir, "config.yaml"),
				filepath.Join(execDir, "..", "config.yaml"),
			)
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		// 测试环境下找不到配置文件时退回默认配置
		if configPath == "" {
			if inTestEnv() {
				return createDefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		if inTestEnv() {
			return createDefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}
	if envURL := os.Getenv("ALIYUN_API_URL"); envURL != "" {
		config.Aliyun.APIURL = envURL
	}
	if envModel := os.Getenv("ALIYUN_MODEL"); envModel != "" {
		config.Aliyun.Model = envModel
	}

	applyDefaults(&config)
	return &config, nil
}

// inTestEnv 粗略检测是否运行在 go test 环境下
func inTestEnv() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}

// applyDefaults 为缺省字段填入默认值
func applyDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Aliyun.Embedding.Model == "" {
		config.Aliyun.Embedding.Model = "text-embedding-v3"
	}
	if config.Aliyun.Embedding.Dimensions == 0 {
		config.Aliyun.Embedding.Dimensions = 1024
	}
	if config.Aliyun.Embedding.BaseURL == "" {
		config.Aliyun.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}
	if config.Qdrant.CollectionPrefix == "" {
		config.Qdrant.CollectionPrefix = "resume_rank"
	}
	if config.Qdrant.Dimension == 0 {
		config.Qdrant.Dimension = config.Aliyun.Embedding.Dimensions
	}
	if config.Qdrant.TimeoutSeconds <= 0 {
		config.Qdrant.TimeoutSeconds = 30
	}
	if config.Ranker.SearchK <= 0 {
		config.Ranker.SearchK = 20
	}
	if config.Ranker.DefaultTopN <= 0 {
		config.Ranker.DefaultTopN = 10
	}
	if config.Ranker.MaxTopN <= 0 {
		config.Ranker.MaxTopN = 50
	}
	if config.Ranker.GeneralSectionLimit <= 0 {
		config.Ranker.GeneralSectionLimit = 2000
	}
	if config.Ranker.PreviewLength <= 0 {
		config.Ranker.PreviewLength = 400
	}
	if config.Ranker.ExcerptLength <= 0 {
		config.Ranker.ExcerptLength = 500
	}
	if config.Feedback.ModelName == "" {
		config.Feedback.ModelName = "qwen-turbo"
	}
	if config.Feedback.GenerateTimeout == "" {
		config.Feedback.GenerateTimeout = "30s"
	}
	if config.Feedback.SectionTextLimit <= 0 {
		config.Feedback.SectionTextLimit = 3000
	}
	if config.Feedback.RequestsPerMin <= 0 {
		config.Feedback.RequestsPerMin = 60
	}
}

// 创建一个默认配置，用于测试环境
func createDefaultConfig() *Config {
	config := &Config{}

	config.Aliyun.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	config.Aliyun.Model = "qwen-turbo"
	config.Qdrant.Endpoint = "http://localhost:6333"

	// Tika默认配置
	config.Tika.ServerURL = "http://localhost:9998"
	config.Tika.Timeout = 60
	config.Tika.Type = "tika"
	config.Tika.MetadataMode = "minimal"

	// 日志默认配置
	config.Logger.Level = "info"
	config.Logger.Format = "pretty" // 开发环境默认使用美化输出
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	} else {
		config.Aliyun.APIKey = "test_api_key"
	}

	applyDefaults(config)
	return config
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	config := createDefaultConfig()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}

	fmt.Printf("示例配置文件已创建: %s\n", filePath)
	return nil
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
