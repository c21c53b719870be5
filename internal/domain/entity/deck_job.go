package entity

import (
	"time"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DeckJob 异步生成任务
type DeckJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`

	Request DeckRequest `json:"request"`

	CompanyName string `json:"company_name,omitempty"`
	DocumentID  string `json:"document_id,omitempty"`

	PlaceholdersResolved int      `json:"placeholders_resolved"`
	ChartsRefreshed      int      `json:"charts_refreshed"`
	UnresolvedTokens     []string `json:"unresolved_tokens,omitempty"`

	ArtifactKey  string `json:"artifact_key,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	ArtifactSize int    `json:"artifact_size,omitempty"`

	FailedStage  string `json:"failed_stage,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	LLMProvider string `json:"llm_provider,omitempty"`
	DurationMs  int    `json:"duration_ms,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewDeckJob 创建待处理任务
func NewDeckJob(id string, req DeckRequest) *DeckJob {
	now := time.Now()
	return &DeckJob{
		ID:        id,
		Status:    JobStatusPending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start 开始执行任务
func (j *DeckJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete 完成任务
func (j *DeckJob) Complete(documentID string, resolved, refreshed int, artifactKey string, artifact *ExportArtifact) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.DocumentID = documentID
	j.PlaceholdersResolved = resolved
	j.ChartsRefreshed = refreshed
	j.ArtifactKey = artifactKey
	if artifact != nil {
		j.FileName = artifact.FileName
		j.MimeType = artifact.MimeType
		j.ArtifactSize = artifact.Size()
	}
	j.finish(now)
}

// Fail 任务失败，记录失败阶段与错误码
func (j *DeckJob) Fail(stage, code, msg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FailedStage = stage
	j.ErrorCode = code
	j.ErrorMessage = msg
	j.finish(now)
}

func (j *DeckJob) finish(now time.Time) {
	j.CompletedAt = &now
	j.UpdatedAt = now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}
