package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
)

// DeckJobModel deck_jobs 表
type DeckJobModel struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	Status string `gorm:"type:varchar(16);index;not null"`

	Idea        string `gorm:"type:text;not null"`
	Customer    string `gorm:"type:text"`
	Region      string `gorm:"type:text"`
	Constraints string `gorm:"type:text"`

	CompanyName string `gorm:"type:varchar(255)"`
	DocumentID  string `gorm:"type:varchar(128)"`

	PlaceholdersResolved int
	ChartsRefreshed      int
	UnresolvedTokens     pq.StringArray `gorm:"type:text[]"`

	ArtifactKey  string `gorm:"type:varchar(255)"`
	FileName     string `gorm:"type:varchar(255)"`
	MimeType     string `gorm:"type:varchar(128)"`
	ArtifactSize int

	FailedStage  string `gorm:"type:varchar(32)"`
	ErrorCode    string `gorm:"type:varchar(16)"`
	ErrorMessage string `gorm:"type:text"`

	LLMProvider string `gorm:"column:llm_provider;type:varchar(64)"`
	DurationMs  int

	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TableName 表名
func (DeckJobModel) TableName() string {
	return "deck_jobs"
}

func toDeckJobModel(j *entity.DeckJob) *DeckJobModel {
	return &DeckJobModel{
		ID:                   j.ID,
		Status:               string(j.Status),
		Idea:                 j.Request.Idea,
		Customer:             j.Request.Customer,
		Region:               j.Request.Region,
		Constraints:          j.Request.Constraints,
		CompanyName:          j.CompanyName,
		DocumentID:           j.DocumentID,
		PlaceholdersResolved: j.PlaceholdersResolved,
		ChartsRefreshed:      j.ChartsRefreshed,
		UnresolvedTokens:     pq.StringArray(j.UnresolvedTokens),
		ArtifactKey:          j.ArtifactKey,
		FileName:             j.FileName,
		MimeType:             j.MimeType,
		ArtifactSize:         j.ArtifactSize,
		FailedStage:          j.FailedStage,
		ErrorCode:            j.ErrorCode,
		ErrorMessage:         j.ErrorMessage,
		LLMProvider:          j.LLMProvider,
		DurationMs:           j.DurationMs,
		CreatedAt:            j.CreatedAt,
		UpdatedAt:            j.UpdatedAt,
		StartedAt:            j.StartedAt,
		CompletedAt:          j.CompletedAt,
	}
}

func (m *DeckJobModel) toEntity() *entity.DeckJob {
	return &entity.DeckJob{
		ID:     m.ID,
		Status: entity.JobStatus(m.Status),
		Request: entity.DeckRequest{
			Idea:        m.Idea,
			Customer:    m.Customer,
			Region:      m.Region,
			Constraints: m.Constraints,
		},
		CompanyName:          m.CompanyName,
		DocumentID:           m.DocumentID,
		PlaceholdersResolved: m.PlaceholdersResolved,
		ChartsRefreshed:      m.ChartsRefreshed,
		UnresolvedTokens:     []string(m.UnresolvedTokens),
		ArtifactKey:          m.ArtifactKey,
		FileName:             m.FileName,
		MimeType:             m.MimeType,
		ArtifactSize:         m.ArtifactSize,
		FailedStage:          m.FailedStage,
		ErrorCode:            m.ErrorCode,
		ErrorMessage:         m.ErrorMessage,
		LLMProvider:          m.LLMProvider,
		DurationMs:           m.DurationMs,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
		StartedAt:            m.StartedAt,
		CompletedAt:          m.CompletedAt,
	}
}

// DeckJobRepository 任务仓储实现
type DeckJobRepository struct {
	client *Client
}

var _ repository.DeckJobRepository = (*DeckJobRepository)(nil)

// NewDeckJobRepository 创建任务仓储
func NewDeckJobRepository(client *Client) *DeckJobRepository {
	return &DeckJobRepository{client: client}
}

// Create 创建任务
func (r *DeckJobRepository) Create(ctx context.Context, job *entity.DeckJob) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckJobRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(toDeckJobModel(job)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create deck job: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取任务
func (r *DeckJobRepository) GetByID(ctx context.Context, id string) (*entity.DeckJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.DeckJobRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var m DeckJobModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get deck job: %w", err)
	}
	return m.toEntity(), nil
}

// Update 更新任务
func (r *DeckJobRepository) Update(ctx context.Context, job *entity.DeckJob) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckJobRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(toDeckJobModel(job)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update deck job: %w", err)
	}
	return nil
}

// MarkRunning 标记任务为运行中
func (r *DeckJobRepository) MarkRunning(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckJobRepository.MarkRunning")
	defer span.End()

	db := getDB(ctx, r.client.db)
	now := time.Now()
	if err := db.Model(&DeckJobModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     string(entity.JobStatusRunning),
		"started_at": now,
		"updated_at": now,
	}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark deck job running: %w", err)
	}
	return nil
}

// List 按创建时间倒序分页列出任务
func (r *DeckJobRepository) List(ctx context.Context, filter *repository.DeckJobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.DeckJob], error) {
	ctx, span := tracer.Start(ctx, "postgres.DeckJobRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&DeckJobModel{})
	if filter != nil && filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count deck jobs: %w", err)
	}

	var models []*DeckJobModel
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&models).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list deck jobs: %w", err)
	}

	jobs := make([]*entity.DeckJob, 0, len(models))
	for _, m := range models {
		jobs = append(jobs, m.toEntity())
	}
	return repository.NewPagedResult(jobs, total, pagination), nil
}

// FailStale 将启动时间早于 before 仍处于运行中的任务标记为失败，返回受影响行数。
// 进程崩溃后由 bootstrap 调用，避免任务永久停留在 running。
func (r *DeckJobRepository) FailStale(ctx context.Context, before time.Time, code, message string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.DeckJobRepository.FailStale")
	defer span.End()

	db := getDB(ctx, r.client.db)
	now := time.Now()
	res := db.Model(&DeckJobModel{}).
		Where("status = ? AND started_at < ?", string(entity.JobStatusRunning), before).
		Updates(map[string]interface{}{
			"status":        string(entity.JobStatusFailed),
			"error_code":    code,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, fmt.Errorf("failed to fail stale deck jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
