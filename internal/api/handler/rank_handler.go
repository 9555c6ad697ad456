package handler

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"resume-ranker-go/internal/logger"
	"resume-ranker-go/internal/ranker"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// parenRe 匹配技能串中的括号说明，如 "Go (golang)" 中的 "(golang)"
var parenRe = regexp.MustCompile(`\([^)]*\)`)

// connectorRe 匹配任意大小写的 or/and 连接词，作为分隔符处理
var connectorRe = regexp.MustCompile(`(?i)\s+(?:or|and)\s+`)

// RankHandler 简历排序接口的HTTP处理器
type RankHandler struct {
	pipeline *ranker.Pipeline
}

// NewRankHandler 创建简历排序处理器
func NewRankHandler(pipeline *ranker.Pipeline) *RankHandler {
	return &RankHandler{pipeline: pipeline}
}

// HandleRankResumes 处理 multipart/form-data 形式的排序请求。
// 表单字段: job_title, job_description, required_skills, top_n, files(可多个)
func (h *RankHandler) HandleRankResumes(c context.Context, ctx *app.RequestContext) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求必须是multipart/form-data格式"})
		return
	}

	req := &ranker.Request{
		JobTitle:       ctx.PostForm("job_title"),
		JobDescription: ctx.PostForm("job_description"),
		RequiredSkills: ParseSkillList(ctx.PostForm("required_skills")),
	}

	if topNStr := ctx.PostForm("top_n"); topNStr != "" {
		topN, err := strconv.Atoi(topNStr)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "top_n必须是整数"})
			return
		}
		req.TopN = topN
	}

	fileHeaders := form.File["files"]
	for _, fh := range fileHeaders {
		file, err := fh.Open()
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "打开上传文件失败: " + fh.Filename})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "读取上传文件失败: " + fh.Filename})
			return
		}
		req.Files = append(req.Files, ranker.UploadedFile{Filename: fh.Filename, Data: data})
	}

	result, err := h.pipeline.Rank(c, req)
	if err != nil {
		switch {
		case errors.Is(err, ranker.ErrInvalidRequest):
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		case errors.Is(err, ranker.ErrNoUsableResumes):
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "所有上传的简历都无法提取出文本，请检查文件格式"})
		default:
			logger.Error().Err(err).Msg("简历排序请求失败")
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "简历排序失败，请稍后重试"})
		}
		return
	}

	ctx.JSON(consts.StatusOK, result)
}

// ParseSkillList 把用户输入的技能串规整为清洗后的技能列表。
// 支持逗号、分号、换行分隔，括号内容视为注释去掉，
// "A or B"/"A and B" 这类自然语言连接词按分隔符处理。
func ParseSkillList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	s := parenRe.ReplaceAllString(raw, " ")
	s = connectorRe.ReplaceAllString(s, ",")
	s = strings.NewReplacer(";", ",", "\n", ",", "、", ",", "，", ",").Replace(s)

	parts := strings.Split(s, ",")
	skills := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		skill := strings.TrimSpace(p)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, skill)
	}
	return skills
}
