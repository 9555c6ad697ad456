package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-ranker-go/internal/api/handler"
	"resume-ranker-go/internal/api/router"
	"resume-ranker-go/internal/config"
	appLogger "resume-ranker-go/internal/logger"
	"resume-ranker-go/internal/parser"
	"resume-ranker-go/internal/ranker"
	"resume-ranker-go/internal/storage"
	"resume-ranker-go/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	var initConfigPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.StringVar(&initConfigPath, "init-config", "", "在指定路径生成示例配置文件并退出")
	pflag.Parse()

	if initConfigPath != "" {
		if err := config.CreateSampleConfig(initConfigPath); err != nil {
			glog.Fatalf("生成示例配置失败: %v", err)
		}
		glog.Infof("示例配置已写入: %s", initConfigPath)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 文本提取器：优先Tika，否则回退到内置PDF解析
	var delegate parser.TextExtractor
	if cfg.Tika.Type == "tika" && cfg.Tika.ServerURL != "" {
		var tikaOptions []parser.TikaOption
		if cfg.Tika.Timeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		if cfg.Tika.MetadataMode != "" && cfg.Tika.MetadataMode != "none" {
			tikaOptions = append(tikaOptions, parser.WithMetadata(true))
		}
		delegate = parser.NewTikaTextExtractor(cfg.Tika.ServerURL, tikaOptions...)
		glog.Info("使用Tika文本提取器")
	} else {
		einoExtractor, err := parser.NewEinoPDFTextExtractor(ctx)
		if err != nil {
			glog.Fatalf("创建PDF提取器失败: %v", err)
		}
		delegate = einoExtractor
		glog.Info("使用内置PDF文本提取器")
	}
	extractor := parser.NewMultiFormatExtractor(delegate)

	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		glog.Fatalf("初始化Embedder失败: %v", err)
	}
	glog.Info("Embedder初始化成功")

	qdrant, err := storage.NewQdrant(&cfg.Qdrant)
	if err != nil {
		glog.Fatalf("初始化Qdrant客户端失败: %v", err)
	}
	glog.Info("Qdrant客户端初始化成功")

	semanticIndex := ranker.NewSemanticIndex(qdrant, embedder, cfg.Qdrant.CollectionPrefix)

	var pipelineOptions []ranker.PipelineOption
	if cfg.Feedback.Enabled && cfg.Aliyun.APIKey != "" {
		chatModel, err := parser.NewAliyunQwenChatModel(
			cfg.Aliyun.APIKey,
			cfg.Feedback.ModelName,
			cfg.Aliyun.APIURL,
			parser.WithTemperature(cfg.Feedback.Temperature),
			parser.WithMaxTokens(cfg.Feedback.MaxTokens),
		)
		if err != nil {
			glog.Fatalf("初始化评语模型失败: %v", err)
		}
		limitedModel := ratelimit.NewRateLimitedChatModel(chatModel, cfg.Feedback.RequestsPerMin)
		feedbackGen := parser.NewLLMFeedbackGenerator(limitedModel,
			parser.WithSectionTextLimit(cfg.Feedback.SectionTextLimit))
		timeout := config.GetDuration(cfg.Feedback.GenerateTimeout, 30*time.Second)
		pipelineOptions = append(pipelineOptions, ranker.WithFeedbackGenerator(feedbackGen, timeout))
		glog.Info("生成式评语已启用")
	} else {
		glog.Info("生成式评语未启用，结果中将返回占位值")
	}

	pipeline := ranker.NewPipeline(extractor, semanticIndex, cfg.Ranker, pipelineOptions...)
	rankHandler := handler.NewRankHandler(pipeline)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, rankHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog并把hertz的日志桥接到同一个logger
func initLogger(cfg *config.Config) {
	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	glog.SetLogger(hertzadapter.From(appLogger.Logger))
}
