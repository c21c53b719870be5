// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"pitchforge-ai-api/internal/domain/entity"
)

// DeckJobFilter 任务过滤条件
type DeckJobFilter struct {
	Status entity.JobStatus
}

// DeckJobRepository 演示文稿任务仓储接口
type DeckJobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.DeckJob) error

	// GetByID 根据 ID 获取任务，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.DeckJob, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.DeckJob) error

	// MarkRunning 标记任务为运行中
	MarkRunning(ctx context.Context, id string) error

	// List 按创建时间倒序分页列出任务
	List(ctx context.Context, filter *DeckJobFilter, pagination Pagination) (*PagedResult[*entity.DeckJob], error)
}
