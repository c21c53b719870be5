package repository

import (
	"context"
	"time"

	"pitchforge-ai-api/internal/domain/entity"
)

// ArtifactStore 导出文件的临时存储
type ArtifactStore interface {
	// Save 保存导出文件，ttl 到期后自动清除
	Save(ctx context.Context, key string, artifact *entity.ExportArtifact, ttl time.Duration) error

	// Load 读取导出文件，不存在或已过期时返回 nil, nil
	Load(ctx context.Context, key string) (*entity.ExportArtifact, error)
}
