package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/conf"
	"github.com/festa-dev/festa-backend/internal/media/data"
	"github.com/festa-dev/festa-backend/internal/pkg/bus"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	pkgminio "github.com/festa-dev/festa-backend/internal/pkg/minio"
	"github.com/festa-dev/festa-backend/internal/thumbworker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

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

	if err := run(cfg, log); err != nil {
		log.Fatal("thumbworker exited", zap.Error(err))
	}
}

func run(cfg *conf.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	worker := thumbworker.NewWorker(store, log)

	busClient, err := bus.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connecting event bus: %w", err)
	}
	defer busClient.Close()

	queue := cfg.NATS.WorkerQueue
	if queue == "" {
		queue = "thumbworker"
	}
	sub, err := busClient.QueueSubscribe(cfg.NATS.EventSubject, queue, worker.HandleNotification)
	if err != nil {
		return fmt.Errorf("subscribing to %q: %w", cfg.NATS.EventSubject, err)
	}
	defer sub.Unsubscribe()

	log.Info("thumbworker started",
		zap.String("subject", cfg.NATS.EventSubject),
		zap.String("queue", queue),
		zap.String("bucket", cfg.MinIO.Bucket))

	<-ctx.Done()
	log.Info("thumbworker stopping")
	return nil
}
