package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"pitchforge-ai-api/internal/config"
	"pitchforge-ai-api/internal/wire"
	apperrors "pitchforge-ai-api/pkg/errors"
)

func main() {
	staleAfter := flag.Duration("stale-after", time.Hour, "fail running jobs started earlier than this (0 disables)")
	flag.Parse()

	_ = godotenv.Load()

	fmt.Println("Starting database bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 迁移表结构并回收崩溃遗留的任务，同一事务内完成
	err = dataLayer.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := dataLayer.PgClient.AutoMigrate(txCtx); err != nil {
			return err
		}
		fmt.Println("Schema migrated.")

		if *staleAfter <= 0 {
			return nil
		}
		n, err := dataLayer.DeckJobs.FailStale(txCtx, time.Now().Add(-*staleAfter),
			string(apperrors.CodeInternalError), "worker stopped before the job finished")
		if err != nil {
			return err
		}
		fmt.Printf("Marked %d stale running job(s) as failed.\n", n)
		return nil
	})
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}
