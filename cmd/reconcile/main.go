package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/conf"
	"github.com/festa-dev/festa-backend/internal/media/data"
	"github.com/festa-dev/festa-backend/internal/pkg/database"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	pkgminio "github.com/festa-dev/festa-backend/internal/pkg/minio"
	"github.com/festa-dev/festa-backend/internal/reconcile"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "audit", "audit or repair")
	flag.Parse()

	if *mode != "audit" && *mode != "repair" {
		fmt.Fprintf(os.Stderr, "unknown mode %q, want audit or repair\n", *mode)
		os.Exit(2)
	}

	cfg, err := conf.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.ToLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, *mode, log); err != nil {
		log.Error("reconcile failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *conf.Config, mode string, log *logger.Logger) error {
	ctx := context.Background()

	db, err := database.New(cfg.Database.ToDatabaseConfig(), log)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()

	minioClient, err := pkgminio.NewClient(&pkgminio.Config{
		Endpoint:        cfg.MinIO.Endpoint,
		AccessKeyID:     cfg.MinIO.AccessKey,
		SecretAccessKey: cfg.MinIO.SecretKey,
		UseSSL:          cfg.MinIO.UseSSL,
	}, log.Logger)
	if err != nil {
		return fmt.Errorf("connecting object storage: %w", err)
	}
	defer minioClient.Close()

	store := data.NewObjectStore(minioClient, cfg.MinIO.Bucket, cfg.MinIO.PublicBaseURL)
	reconciler := reconcile.NewReconciler(data.NewMediaRepo(db), store, log)

	switch mode {
	case "audit":
		report, err := reconciler.Audit(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total:            %d\n", report.Total)
		fmt.Printf("withThumbnail:    %d\n", report.WithThumbnail)
		fmt.Printf("withoutThumbnail: %d\n", report.WithoutThumbnail)
	case "repair":
		report, err := reconciler.RepairAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total:            %d\n", report.Total)
		fmt.Printf("withThumbnail:    %d\n", report.WithThumbnail)
		fmt.Printf("withoutThumbnail: %d\n", report.WithoutThumbnail)
		fmt.Printf("repaired:         %d\n", report.Repaired)
		fmt.Printf("skipped:          %d\n", report.Skipped)
		fmt.Printf("failed:           %d\n", report.Failed)
	}
	return nil
}
