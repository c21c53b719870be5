//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"pitchforge-ai-api/internal/config"
	"pitchforge-ai-api/internal/infrastructure/llm"
	"pitchforge-ai-api/internal/infrastructure/persistence/postgres"
	"pitchforge-ai-api/internal/interfaces/http/router"
)

// DeckSet 生成流水线：后端、模型、各阶段与服务
var DeckSet = wire.NewSet(
	ProvideBackend,
	llm.NewEinoFactory,
	ProvideContentChain,
	ProvideSynthesizer,
	ProvideTemplateInstantiator,
	ProvideChartSynchronizer,
	ProvidePipeline,
)

// JobStoreSet 异步任务依赖：仓储、导出文件存储、投递
var JobStoreSet = wire.NewSet(
	ProvideDeckJobRepository,
	ProvideArtifactStore,
	ProvideJobPublisher,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideRateLimiter,
	ProvideHealthHandler,
	ProvideDeckHandler,
	ProvideDeckJobHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)

// InitializeApp 初始化 API 网关；PostgreSQL 与 Redis 不可达时以同步模式启动
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		ProvidePostgresClientOptional,
		ProvideRedisClientOptional,
		JobStoreSet,
		DeckSet,
		ProvideDeckService,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化后台任务进程，PostgreSQL 与 Redis 必需
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClient,
		JobStoreSet,
		DeckSet,
		ProvideDeckService,
		ProvideConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeDeckRuntime 初始化不依赖数据库与队列的生成运行时（CLI 使用）
func InitializeDeckRuntime(ctx context.Context, cfg *config.Config) (*DeckRuntime, error) {
	wire.Build(
		DeckSet,
		ProvideDeckServiceNoJobs,
		wire.Struct(new(DeckRuntime), "*"),
	)
	return nil, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnly, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewTxManager,
		postgres.NewDeckJobRepository,
		wire.Struct(new(PostgresOnly), "*"),
	)
	return nil, nil, nil
}
