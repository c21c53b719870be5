package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
	"pitchforge-ai-api/internal/interfaces/http/dto"
)

// DeckJobHandler 异步任务处理器
type DeckJobHandler struct {
	svc DeckService
}

// NewDeckJobHandler 创建处理器
func NewDeckJobHandler(svc DeckService) *DeckJobHandler {
	return &DeckJobHandler{svc: svc}
}

// Submit 提交异步生成任务
// @Summary 提交生成任务
// @Description 创建任务并投递到队列，由 deck-worker 执行
// @Tags DeckJobs
// @Accept json
// @Produce json
// @Param body body dto.GenerateDeckRequest true "生成请求"
// @Success 202 {object} dto.Response[dto.DeckJobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "未启用异步任务"
// @Router /v1/deck-jobs [post]
func (h *DeckJobHandler) Submit(c *gin.Context) {
	var req dto.GenerateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	job, err := h.svc.SubmitJob(c.Request.Context(), req.ToEntity())
	if err != nil {
		dto.Fail(c, err)
		return
	}

	c.Header("Location", "/v1/deck-jobs/"+job.ID)
	dto.Accepted(c, dto.ToDeckJobResponse(job))
}

// Get 获取任务详情
// @Summary 获取任务
// @Tags DeckJobs
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.DeckJobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/deck-jobs/{id} [get]
func (h *DeckJobHandler) Get(c *gin.Context) {
	job, err := h.svc.GetJob(c.Request.Context(), dto.BindJobID(c))
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.ToDeckJobResponse(job))
}

// List 分页列出任务
// @Summary 任务列表
// @Tags DeckJobs
// @Produce json
// @Param status query string false "状态过滤"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.DeckJobResponse]
// @Router /v1/deck-jobs [get]
func (h *DeckJobHandler) List(c *gin.Context) {
	page := dto.BindPage(c)

	var filter *repository.DeckJobFilter
	if status := c.Query("status"); status != "" {
		switch s := entity.JobStatus(status); s {
		case entity.JobStatusPending, entity.JobStatusRunning, entity.JobStatusCompleted, entity.JobStatusFailed:
			filter = &repository.DeckJobFilter{Status: s}
		default:
			dto.BadRequest(c, "invalid status: "+status)
			return
		}
	}

	result, err := h.svc.ListJobs(c.Request.Context(), filter, page.Pagination())
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToDeckJobResponses(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total, result.TotalPages))
}

// Artifact 下载已完成任务的导出文件
// @Summary 下载导出文件
// @Tags DeckJobs
// @Produce application/vnd.openxmlformats-officedocument.presentationml.presentation
// @Param id path string true "任务 ID"
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse "任务不存在、未完成或文件已过期"
// @Router /v1/deck-jobs/{id}/artifact [get]
func (h *DeckJobHandler) Artifact(c *gin.Context) {
	job, artifact, err := h.svc.GetArtifact(c.Request.Context(), dto.BindJobID(c))
	if err != nil {
		dto.Fail(c, err)
		return
	}

	writeArtifact(c, artifact)
	if job.DocumentID != "" {
		c.Header(dto.HeaderDocumentID, job.DocumentID)
	}
	c.Data(http.StatusOK, artifact.MimeType, artifact.Data)
}
