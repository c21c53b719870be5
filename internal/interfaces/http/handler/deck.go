package handler

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pitchforge-ai-api/internal/application/deck"
	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
	"pitchforge-ai-api/internal/interfaces/http/dto"
	"pitchforge-ai-api/pkg/logger"
)

// DeckService 演示文稿生成服务
type DeckService interface {
	Generate(ctx context.Context, req entity.DeckRequest) (*deck.Result, error)
	Preview(ctx context.Context, req entity.DeckRequest) (*deck.Result, error)
	SubmitJob(ctx context.Context, req entity.DeckRequest) (*entity.DeckJob, error)
	GetJob(ctx context.Context, id string) (*entity.DeckJob, error)
	ListJobs(ctx context.Context, filter *repository.DeckJobFilter, page repository.Pagination) (*repository.PagedResult[*entity.DeckJob], error)
	GetArtifact(ctx context.Context, id string) (*entity.DeckJob, *entity.ExportArtifact, error)
}

// DeckHandler 同步生成与预览
type DeckHandler struct {
	svc DeckService
}

// NewDeckHandler 创建处理器
func NewDeckHandler(svc DeckService) *DeckHandler {
	return &DeckHandler{svc: svc}
}

// Generate 同步生成演示文稿
// @Summary 生成演示文稿
// @Description 生成内容、实例化母版、同步图表并导出，直接返回文件
// @Tags Decks
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.presentationml.presentation
// @Param body body dto.GenerateDeckRequest true "生成请求"
// @Success 200 {file} binary
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "某个阶段失败"
// @Router /v1/decks [post]
func (h *DeckHandler) Generate(c *gin.Context) {
	var req dto.GenerateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Generate(c.Request.Context(), req.ToEntity())
	if err != nil {
		dto.Fail(c, err)
		return
	}

	writeArtifact(c, res.Artifact)
	c.Header(dto.HeaderPlaceholdersResolved, strconv.Itoa(res.Summary.PlaceholdersResolved))
	c.Header(dto.HeaderChartsRefreshed, strconv.Itoa(res.Summary.ChartsRefreshed))
	if res.Handle != nil {
		c.Header(dto.HeaderDocumentID, res.Handle.DocumentID)
	}
	if len(res.Summary.RepairedFields) > 0 {
		c.Header(dto.HeaderRepairedFields, strings.Join(res.Summary.RepairedFields, ","))
	}
	c.Data(http.StatusOK, res.Artifact.MimeType, res.Artifact.Data)
}

// Preview 预览内容与占位符表
// @Summary 预览内容
// @Description 只调用模型生成内容并映射占位符，不创建任何文档
// @Tags Decks
// @Accept json
// @Produce json
// @Param body body dto.GenerateDeckRequest true "生成请求"
// @Success 200 {object} dto.Response[dto.PreviewResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/decks/preview [post]
func (h *DeckHandler) Preview(c *gin.Context) {
	var req dto.GenerateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Preview(c.Request.Context(), req.ToEntity())
	if err != nil {
		dto.Fail(c, err)
		return
	}

	logger.Debug(c.Request.Context(), "deck preview generated",
		"company_name", res.Content.CompanyName,
		"attempts", res.Summary.ContentAttempts,
	)
	dto.Success(c, dto.ToPreviewResponse(res))
}

// writeArtifact 写下载头
func writeArtifact(c *gin.Context, a *entity.ExportArtifact) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
}
