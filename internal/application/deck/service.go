package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/internal/domain/repository"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/metrics"
)

// Runner 流水线
type Runner interface {
	Run(ctx context.Context, req entity.DeckRequest) (*Result, error)
	Preview(ctx context.Context, req entity.DeckRequest) (*Result, error)
}

// JobPublisher 把任务投递给后台 worker
type JobPublisher interface {
	PublishDeckJob(ctx context.Context, job *entity.DeckJob) (string, error)
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	// DeleteCopyAfterExport 导出成功后删除副本；失败时副本保留以便排查
	DeleteCopyAfterExport bool
	ArtifactTTL           time.Duration
	LLMProvider           string
	// SyncTimeout 同步生成的整体超时，0 表示不限
	SyncTimeout time.Duration
}

// Service 演示文稿生成服务：同步生成、预览、异步任务
type Service struct {
	pipeline  Runner
	remover   gateway.DocumentRemover
	jobs      repository.DeckJobRepository
	artifacts repository.ArtifactStore
	publisher JobPublisher
	cfg       ServiceConfig
}

// NewService 创建服务；jobs、artifacts、publisher 为空时不支持异步任务
func NewService(
	pipeline Runner,
	remover gateway.DocumentRemover,
	jobs repository.DeckJobRepository,
	artifacts repository.ArtifactStore,
	publisher JobPublisher,
	cfg ServiceConfig,
) *Service {
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = 24 * time.Hour
	}
	return &Service{
		pipeline:  pipeline,
		remover:   remover,
		jobs:      jobs,
		artifacts: artifacts,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Validate 规范化请求，idea 必填
func Validate(req entity.DeckRequest) (entity.DeckRequest, error) {
	req.Idea = strings.TrimSpace(req.Idea)
	req.Customer = strings.TrimSpace(req.Customer)
	req.Region = strings.TrimSpace(req.Region)
	req.Constraints = strings.TrimSpace(req.Constraints)
	if req.Idea == "" {
		return req, apperrors.New(apperrors.CodeInvalidParam, "idea is required")
	}
	return req, nil
}

// Generate 同步生成演示文稿
func (s *Service) Generate(ctx context.Context, req entity.DeckRequest) (*Result, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}
	if s.cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SyncTimeout)
		defer cancel()
	}

	res, err := s.pipeline.Run(ctx, req)
	if err != nil {
		if res != nil && res.Handle != nil {
			logger.Warn(ctx, "deck copy left for manual cleanup",
				"document_id", res.Handle.DocumentID,
				"failed_stage", res.Summary.FailedStage,
			)
		}
		return res, err
	}
	s.cleanup(ctx, res)
	return res, nil
}

// Preview 只生成内容与占位符表
func (s *Service) Preview(ctx context.Context, req entity.DeckRequest) (*Result, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Preview(ctx, req)
}

// cleanup 导出成功后尽力删除副本，失败只记录日志
func (s *Service) cleanup(ctx context.Context, res *Result) {
	if !s.cfg.DeleteCopyAfterExport || s.remover == nil || res.Handle == nil {
		return
	}
	if err := s.remover.Delete(ctx, res.Handle.DocumentID); err != nil {
		logger.Warn(ctx, "failed to delete deck copy",
			"document_id", res.Handle.DocumentID,
			"error", err.Error(),
		)
		return
	}
	logger.Debug(ctx, "deck copy deleted", "document_id", res.Handle.DocumentID)
}

func (s *Service) asyncEnabled() bool {
	return s.jobs != nil && s.artifacts != nil && s.publisher != nil
}

// SubmitJob 创建异步任务并投递到队列
func (s *Service) SubmitJob(ctx context.Context, req entity.DeckRequest) (*entity.DeckJob, error) {
	if !s.asyncEnabled() {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "async deck jobs are not enabled")
	}
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}

	job := entity.NewDeckJob(uuid.NewString(), req)
	job.LLMProvider = s.cfg.LLMProvider
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create deck job")
	}

	if _, err := s.publisher.PublishDeckJob(ctx, job); err != nil {
		job.Fail("", string(apperrors.CodeQueueError), "failed to enqueue job")
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to mark unqueued job as failed", uerr, "job_id", job.ID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "failed to enqueue deck job")
	}

	logger.Info(ctx, "deck job submitted", "job_id", job.ID)
	return job, nil
}

// GetJob 查询任务
func (s *Service) GetJob(ctx context.Context, id string) (*entity.DeckJob, error) {
	if s.jobs == nil {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "async deck jobs are not enabled")
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load deck job")
	}
	if job == nil {
		return nil, apperrors.ErrJobNotFound
	}
	return job, nil
}

// ListJobs 分页列出任务
func (s *Service) ListJobs(ctx context.Context, filter *repository.DeckJobFilter, page repository.Pagination) (*repository.PagedResult[*entity.DeckJob], error) {
	if s.jobs == nil {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "async deck jobs are not enabled")
	}
	out, err := s.jobs.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list deck jobs")
	}
	return out, nil
}

// GetArtifact 读取已完成任务的导出文件
func (s *Service) GetArtifact(ctx context.Context, id string) (*entity.DeckJob, *entity.ExportArtifact, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != entity.JobStatusCompleted || job.ArtifactKey == "" {
		return job, nil, apperrors.ErrArtifactNotFound.WithDetail(fmt.Sprintf("job is %s", job.Status))
	}
	artifact, err := s.artifacts.Load(ctx, job.ArtifactKey)
	if err != nil {
		return job, nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load deck artifact")
	}
	if artifact == nil {
		return job, nil, apperrors.ErrArtifactNotFound.WithDetail("artifact expired")
	}
	return job, artifact, nil
}

// ProcessJob 执行一个排队的任务；任务本身的失败写入任务状态，不作为返回错误。
// 返回错误表示基础设施故障，消息应当重试。
func (s *Service) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load deck job: %w", err)
	}
	if job == nil {
		logger.Warn(ctx, "deck job not found, dropping message", "job_id", jobID)
		return nil
	}
	if job.Status.IsTerminal() {
		logger.Info(ctx, "deck job already finished, skipping", "job_id", jobID, "status", job.Status)
		return nil
	}

	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)
	if err := s.jobs.MarkRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("mark deck job running: %w", err)
	}
	job.Start()

	metrics.DeckJobsInFlight.Inc()
	defer metrics.DeckJobsInFlight.Dec()

	res, runErr := s.pipeline.Run(ctx, job.Request)
	if res != nil {
		if res.Content != nil {
			job.CompanyName = res.Content.CompanyName
		}
		if res.Handle != nil {
			job.DocumentID = res.Handle.DocumentID
		}
		job.UnresolvedTokens = res.Summary.UnresolvedTokens
	}

	if runErr != nil {
		appErr := apperrors.AsAppError(runErr)
		stage := ""
		if res != nil {
			stage = string(res.Summary.FailedStage)
		}
		job.Fail(stage, string(appErr.Code), appErr.Error())
		logger.Error(ctx, "deck job failed", runErr, "failed_stage", stage)
		return s.saveJob(ctx, job)
	}

	key := "deck:artifact:" + job.ID
	if err := s.artifacts.Save(ctx, key, res.Artifact, s.cfg.ArtifactTTL); err != nil {
		job.Fail("", string(apperrors.CodeCacheError), "failed to store artifact")
		logger.Error(ctx, "failed to store deck artifact", err)
		return s.saveJob(ctx, job)
	}
	s.cleanup(ctx, res)

	job.Complete(res.Handle.DocumentID, res.Summary.PlaceholdersResolved, res.Summary.ChartsRefreshed, key, res.Artifact)
	logger.Info(ctx, "deck job completed",
		"artifact_size", res.Artifact.Size(),
		"duration_ms", job.DurationMs,
	)
	return s.saveJob(ctx, job)
}

func (s *Service) saveJob(ctx context.Context, job *entity.DeckJob) error {
	if err := s.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update deck job: %w", err)
	}
	return nil
}
