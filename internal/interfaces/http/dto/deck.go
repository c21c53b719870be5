package dto

import (
	"time"

	"pitchforge-ai-api/internal/application/deck"
	"pitchforge-ai-api/internal/domain/entity"
)

// 同步生成接口在响应头中返回的摘要
const (
	HeaderPlaceholdersResolved = "X-Deck-Placeholders-Resolved"
	HeaderChartsRefreshed      = "X-Deck-Charts-Refreshed"
	HeaderDocumentID           = "X-Deck-Document-Id"
	HeaderRepairedFields       = "X-Deck-Repaired-Fields"
)

// PreviewResponse 内容与占位符表预览
type PreviewResponse struct {
	Content        *entity.ContentModel `json:"content"`
	Placeholders   []entity.Placeholder `json:"placeholders"`
	RepairedFields []string             `json:"repaired_fields,omitempty"`
	Issues         []string             `json:"issues,omitempty"`
	Attempts       int                  `json:"attempts"`
}

// ToPreviewResponse 转换预览结果
func ToPreviewResponse(res *deck.Result) *PreviewResponse {
	out := &PreviewResponse{Content: res.Content}
	if res.Placeholders != nil {
		out.Placeholders = res.Placeholders.Entries()
	}
	if res.Synthesis != nil {
		out.RepairedFields = res.Synthesis.Repaired
		out.Issues = res.Synthesis.Issues
		out.Attempts = res.Synthesis.Attempts
	}
	return out
}

// DeckJobResponse 异步任务
type DeckJobResponse struct {
	ID                   string             `json:"id"`
	Status               string             `json:"status"`
	Request              entity.DeckRequest `json:"request"`
	CompanyName          string             `json:"company_name,omitempty"`
	DocumentID           string             `json:"document_id,omitempty"`
	PlaceholdersResolved int                `json:"placeholders_resolved"`
	ChartsRefreshed      int                `json:"charts_refreshed"`
	UnresolvedTokens     []string           `json:"unresolved_tokens,omitempty"`
	FileName             string             `json:"file_name,omitempty"`
	ArtifactSize         int                `json:"artifact_size,omitempty"`
	ArtifactURL          string             `json:"artifact_url,omitempty"`
	FailedStage          string             `json:"failed_stage,omitempty"`
	ErrorCode            string             `json:"error_code,omitempty"`
	ErrorMessage         string             `json:"error_message,omitempty"`
	DurationMs           int                `json:"duration_ms,omitempty"`
	CreatedAt            string             `json:"created_at"`
	StartedAt            string             `json:"started_at,omitempty"`
	CompletedAt          string             `json:"completed_at,omitempty"`
}

// ToDeckJobResponse 转换任务
func ToDeckJobResponse(j *entity.DeckJob) *DeckJobResponse {
	out := &DeckJobResponse{
		ID:                   j.ID,
		Status:               string(j.Status),
		Request:              j.Request,
		CompanyName:          j.CompanyName,
		DocumentID:           j.DocumentID,
		PlaceholdersResolved: j.PlaceholdersResolved,
		ChartsRefreshed:      j.ChartsRefreshed,
		UnresolvedTokens:     j.UnresolvedTokens,
		FileName:             j.FileName,
		ArtifactSize:         j.ArtifactSize,
		FailedStage:          j.FailedStage,
		ErrorCode:            j.ErrorCode,
		ErrorMessage:         j.ErrorMessage,
		DurationMs:           j.DurationMs,
		CreatedAt:            formatTime(j.CreatedAt),
	}
	if j.Status == entity.JobStatusCompleted {
		out.ArtifactURL = "/v1/deck-jobs/" + j.ID + "/artifact"
	}
	if j.StartedAt != nil {
		out.StartedAt = formatTime(*j.StartedAt)
	}
	if j.CompletedAt != nil {
		out.CompletedAt = formatTime(*j.CompletedAt)
	}
	return out
}

// ToDeckJobResponses 批量转换
func ToDeckJobResponses(jobs []*entity.DeckJob) []*DeckJobResponse {
	out := make([]*DeckJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToDeckJobResponse(j))
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
