// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"pitchforge-ai-api/internal/application/deck"
	"pitchforge-ai-api/internal/application/deck/chart"
	"pitchforge-ai-api/internal/application/deck/synth"
	"pitchforge-ai-api/internal/application/deck/template"
	"pitchforge-ai-api/internal/config"
	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/internal/domain/repository"
	"pitchforge-ai-api/internal/infrastructure/google"
	"pitchforge-ai-api/internal/infrastructure/llm"
	"pitchforge-ai-api/internal/infrastructure/memdeck"
	"pitchforge-ai-api/internal/infrastructure/messaging"
	"pitchforge-ai-api/internal/infrastructure/persistence/postgres"
	"pitchforge-ai-api/internal/infrastructure/persistence/redis"
	"pitchforge-ai-api/internal/interfaces/http/handler"
	"pitchforge-ai-api/internal/interfaces/http/middleware"
	"pitchforge-ai-api/internal/workflow/chain"
	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/retry"
	"pitchforge-ai-api/pkg/textrun"
)

// 后端名称
const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Backend 文档与表格后端
type Backend struct {
	Name      string
	Documents gateway.DocumentGateway
	Sheets    gateway.SpreadsheetGateway
	// MasterID 母版文档 ID
	MasterID string
	// ChartSpreadsheetID 为空时从文档的关联图表推断
	ChartSpreadsheetID string
}

// DeckRuntime 不依赖数据库与队列的生成运行时（CLI 使用）
type DeckRuntime struct {
	Backend *Backend
	Service *deck.Service
}

// Worker 后台任务进程的依赖
type Worker struct {
	Service  *deck.Service
	Consumer *messaging.Consumer
	PgClient *postgres.Client
}

// PostgresOnly 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnly struct {
	PgClient  *postgres.Client
	TxManager *postgres.TxManager
	DeckJobs  *postgres.DeckJobRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.Observability.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClientOptional API 网关可选 PostgreSQL：不可达时禁用异步任务，不阻塞启动
func ProvidePostgresClientOptional(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, cleanup, err := ProvidePostgresClient(cfg)
	if err != nil {
		logger.Warn(ctx, "postgres not available, async deck jobs disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional API 网关可选 Redis：不可达时禁用异步任务与限流
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	client, cleanup, err := ProvideRedisClient(cfg)
	if err != nil {
		logger.Warn(ctx, "redis not available, async deck jobs and rate limiting disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, cleanup, nil
}

// 以下 Provide* 在依赖缺失时返回无类型 nil，避免把空指针包装成非空接口

// ProvideDeckJobRepository 任务仓储
func ProvideDeckJobRepository(pg *postgres.Client) repository.DeckJobRepository {
	if pg == nil {
		return nil
	}
	return postgres.NewDeckJobRepository(pg)
}

// ProvideArtifactStore 导出文件存储
func ProvideArtifactStore(rc *redis.Client) repository.ArtifactStore {
	if rc == nil {
		return nil
	}
	return redis.NewArtifactStore(rc)
}

// ProvideJobPublisher 任务投递
func ProvideJobPublisher(rc *redis.Client, cfg *config.Config) deck.JobPublisher {
	if rc == nil {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return messaging.NewProducer(rc.Redis(), int64(maxLen))
}

// ProvideRateLimiter 限流器
func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}

// RetryPolicy 远程调用重试策略；未配置的字段取默认值
func RetryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.Retry.MaxTries > 0 {
		p.MaxTries = cfg.Retry.MaxTries
	}
	if cfg.Retry.InitialInterval > 0 {
		p.InitialInterval = cfg.Retry.InitialInterval
	}
	if cfg.Retry.MaxInterval > 0 {
		p.MaxInterval = cfg.Retry.MaxInterval
	}
	if cfg.Retry.PerCallTimeout > 0 {
		p.PerCallTimeout = cfg.Retry.PerCallTimeout
	}
	return p
}

// Delimiters 占位符定界符
func Delimiters(cfg *config.Config) textrun.Delimiters {
	if cfg.Deck.TokenOpen == "" || cfg.Deck.TokenClose == "" {
		return textrun.DefaultDelimiters
	}
	return textrun.Delimiters{Open: cfg.Deck.TokenOpen, Close: cfg.Deck.TokenClose}
}

// ProvideBackend 按 deck.backend 构造文档后端
func ProvideBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Deck.Backend {
	case BackendMemory:
		store := memdeck.NewStore()
		memdeck.SeedPitchMaster(store, Delimiters(cfg))
		// 内存后端只有内置母版，忽略为远程后端配置的文档 ID
		logger.Info(ctx, "using in-memory deck backend", "master_id", memdeck.PitchMasterID)
		return &Backend{
			Name:               BackendMemory,
			Documents:          store,
			Sheets:             store,
			MasterID:           memdeck.PitchMasterID,
			ChartSpreadsheetID: memdeck.PitchChartSpreadsheetID,
		}, nil

	case BackendGoogle, "":
		session, err := google.NewSession(ctx, &cfg.Google)
		if err != nil {
			return nil, fmt.Errorf("create google session: %w", err)
		}
		gw := google.NewGateway(session, RetryPolicy(cfg))
		return &Backend{
			Name:               BackendGoogle,
			Documents:          gw,
			Sheets:             gw,
			MasterID:           cfg.Deck.TemplatePresentationID,
			ChartSpreadsheetID: cfg.Deck.ChartSpreadsheetID,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported deck backend %q", cfg.Deck.Backend)
	}
}

// ProvideContentChain 内容生成链
func ProvideContentChain(factory *llm.EinoFactory) *chain.DeckContentChain {
	return chain.NewDeckContentChain(factory)
}

// ProvideSynthesizer 内容生成器，模型参数取默认提供商的配置
func ProvideSynthesizer(cfg *config.Config, contentChain *chain.DeckContentChain) (*synth.Synthesizer, error) {
	provider := cfg.LLM.DefaultProvider
	pc := cfg.LLM.Providers[provider]

	policy := RetryPolicy(cfg)
	if pc.Timeout > 0 {
		policy.PerCallTimeout = pc.Timeout
	}

	sc := synth.Config{
		MaxAttempts: cfg.Deck.ContentAttempts,
		Provider:    provider,
		Model:       pc.Model,
		Retry:       policy,
		IsTransient: llm.IsTransientError,
	}
	if pc.Temperature > 0 {
		t := float32(pc.Temperature)
		sc.Temperature = &t
	}
	if pc.MaxTokens > 0 {
		n := pc.MaxTokens
		sc.MaxTokens = &n
	}
	return synth.New(contentChain, sc)
}

// ProvideTemplateInstantiator 母版实例化器
func ProvideTemplateInstantiator(cfg *config.Config, backend *Backend) *template.Instantiator {
	return template.NewInstantiator(backend.Documents, backend.MasterID, Delimiters(cfg))
}

// ProvideChartSynchronizer 图表同步器
func ProvideChartSynchronizer(cfg *config.Config, backend *Backend) *chart.Synchronizer {
	return chart.NewSynchronizer(backend.Documents, backend.Sheets, chart.Config{
		SpreadsheetID: backend.ChartSpreadsheetID,
		SheetTitle:    cfg.Deck.ChartSheetTitle,
		SheetPrefix:   cfg.Deck.ChartSheetPrefix,
		Range:         cfg.Deck.ChartRange,
		SettleDelay:   cfg.Deck.SettleDelay,
	})
}

// ProvidePipeline 生成流水线
func ProvidePipeline(cfg *config.Config, s *synth.Synthesizer, inst *template.Instantiator, charts *chart.Synchronizer, backend *Backend) *deck.Pipeline {
	return deck.NewPipeline(s, inst, charts, backend.Documents, cfg.Deck.ExportMimeType)
}

// ProvideDeckService 生成服务
func ProvideDeckService(
	cfg *config.Config,
	pipeline *deck.Pipeline,
	backend *Backend,
	jobs repository.DeckJobRepository,
	artifacts repository.ArtifactStore,
	publisher deck.JobPublisher,
) *deck.Service {
	return deck.NewService(pipeline, backend.Documents, jobs, artifacts, publisher, deck.ServiceConfig{
		DeleteCopyAfterExport: cfg.Deck.DeleteCopyAfterExport,
		ArtifactTTL:           cfg.Cache.ArtifactTTL,
		LLMProvider:           cfg.LLM.DefaultProvider,
		SyncTimeout:           cfg.Server.HTTP.SyncTimeout,
	})
}

// ProvideDeckServiceNoJobs CLI 使用的生成服务，不支持异步任务
func ProvideDeckServiceNoJobs(cfg *config.Config, pipeline *deck.Pipeline, backend *Backend) *deck.Service {
	return ProvideDeckService(cfg, pipeline, backend, nil, nil, nil)
}

// ProvideHealthHandler 健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, rc, cfg.Deck.Backend, cfg.App.Version)
}

// ProvideDeckHandler 同步生成处理器
func ProvideDeckHandler(svc *deck.Service) *handler.DeckHandler {
	return handler.NewDeckHandler(svc)
}

// ProvideDeckJobHandler 异步任务处理器
func ProvideDeckJobHandler(svc *deck.Service) *handler.DeckJobHandler {
	return handler.NewDeckJobHandler(svc)
}

// ProvideConsumer 任务消费者，注册 deck_generate 处理函数
func ProvideConsumer(cfg *config.Config, rc *redis.Client, svc *deck.Service) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream

	group := messaging.ConsumerGroupDeckWorker
	if rs.ConsumerGroupPrefix != "" {
		group = messaging.ConsumerGroup(rs.ConsumerGroupPrefix + "-" + string(messaging.ConsumerGroupDeckWorker))
	}

	backoff := messaging.DefaultBackoffConfig()
	if rs.RetryBackoff.Initial > 0 {
		backoff.Initial = rs.RetryBackoff.Initial
	}
	if rs.RetryBackoff.Max > 0 {
		backoff.Max = rs.RetryBackoff.Max
	}
	if rs.RetryBackoff.Multiplier > 1 {
		backoff.Multiplier = rs.RetryBackoff.Multiplier
	}

	consumer := messaging.NewConsumer(rc.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamDeckJobs,
		Group:         group,
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       backoff,
	})
	consumer.RegisterHandler(messaging.MessageTypeDeckJob, messaging.DeckJobHandler(svc))
	return consumer
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "deck-worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
