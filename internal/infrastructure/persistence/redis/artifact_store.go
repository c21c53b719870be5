package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
)

var cacheTracer = otel.Tracer("redis.artifact")

const (
	fieldMeta = "meta"
	fieldData = "data"
)

// artifactMeta 导出文件的元数据，二进制内容单独存放在 data 字段
type artifactMeta struct {
	MimeType string    `json:"mime_type"`
	FileName string    `json:"file_name"`
	Size     int       `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// ArtifactStore 用 Redis Hash 保存异步任务的导出文件
type ArtifactStore struct {
	client *Client
	group  singleflight.Group
}

var _ repository.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore 创建导出文件存储
func NewArtifactStore(client *Client) *ArtifactStore {
	return &ArtifactStore{client: client}
}

// Save 写入导出文件并设置过期时间
func (s *ArtifactStore) Save(ctx context.Context, key string, artifact *entity.ExportArtifact, ttl time.Duration) error {
	ctx, span := cacheTracer.Start(ctx, "artifact.Save",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int("artifact.size", artifact.Size()),
			attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	fields, err := encodeArtifact(artifact, time.Now())
	if err != nil {
		span.RecordError(err)
		return err
	}

	pipe := s.client.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	return nil
}

// Load 读取导出文件；不存在或已过期时返回 nil, nil。
// 同一 key 的并发读取合并为一次 Redis 调用。
func (s *ArtifactStore) Load(ctx context.Context, key string) (*entity.ExportArtifact, error) {
	ctx, span := cacheTracer.Start(ctx, "artifact.Load",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.client.rdb.HGetAll(ctx, key).Result()
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	fields := v.(map[string]string)
	if len(fields) == 0 {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))

	artifact, err := decodeArtifact(fields)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return artifact, nil
}

// Delete 删除导出文件
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	ctx, span := cacheTracer.Start(ctx, "artifact.Delete",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if err := s.client.rdb.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func encodeArtifact(a *entity.ExportArtifact, now time.Time) (map[string]interface{}, error) {
	if a == nil {
		return nil, fmt.Errorf("artifact is nil")
	}
	meta, err := json.Marshal(artifactMeta{
		MimeType: a.MimeType,
		FileName: a.FileName,
		Size:     len(a.Data),
		StoredAt: now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact meta: %w", err)
	}
	return map[string]interface{}{
		fieldMeta: string(meta),
		fieldData: a.Data,
	}, nil
}

func decodeArtifact(fields map[string]string) (*entity.ExportArtifact, error) {
	raw, ok := fields[fieldMeta]
	if !ok {
		return nil, fmt.Errorf("artifact meta missing")
	}
	var meta artifactMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact meta: %w", err)
	}
	data := []byte(fields[fieldData])
	if len(data) != meta.Size {
		return nil, fmt.Errorf("artifact truncated: want %d bytes, got %d", meta.Size, len(data))
	}
	return &entity.ExportArtifact{
		Data:     data,
		MimeType: meta.MimeType,
		FileName: meta.FileName,
	}, nil
}

// ArtifactKey 构建任务导出文件的键
func ArtifactKey(jobID string) string {
	return "deck:artifact:" + jobID
}
