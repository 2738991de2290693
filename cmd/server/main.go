package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/festa-dev/festa-backend/internal/auth"
	"github.com/festa-dev/festa-backend/internal/conf"
	"github.com/festa-dev/festa-backend/internal/media/biz"
	"github.com/festa-dev/festa-backend/internal/media/data"
	"github.com/festa-dev/festa-backend/internal/media/models"
	"github.com/festa-dev/festa-backend/internal/media/service"
	"github.com/festa-dev/festa-backend/internal/pkg/database"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	pkgminio "github.com/festa-dev/festa-backend/internal/pkg/minio"
	"github.com/festa-dev/festa-backend/internal/pkg/redis"
	"github.com/festa-dev/festa-backend/internal/reconcile"
	"github.com/festa-dev/festa-backend/internal/server"
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
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *conf.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ToDatabaseConfig(), log)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.MediaRecord{}, &models.Situation{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	// Rate limiting degrades gracefully: no redis, no limiter.
	redisClient, err := redis.New(&redis.Config{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Warn("redis unavailable, grant rate limiting disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

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

	if err := minioClient.EnsureBucket(ctx, cfg.MinIO.Bucket); err != nil {
		return fmt.Errorf("provisioning bucket %q: %w", cfg.MinIO.Bucket, err)
	}

	store := data.NewObjectStore(minioClient, cfg.MinIO.Bucket, cfg.MinIO.PublicBaseURL)
	mediaRepo := data.NewMediaRepo(db)
	situationRepo := data.NewSituationRepo(db)
	mediaUC := biz.NewMediaUseCase(mediaRepo, situationRepo, store,
		cfg.Upload.GrantTTL, cfg.Upload.MaxFileSizeBytes, log)
	mediaService := service.NewMediaService(mediaUC)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	gin.SetMode(gin.ReleaseMode)
	httpServer := server.NewHTTPServer(&cfg.Server, mediaService, jwtManager, redisClient, db, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start()
	})

	if cfg.Upload.AuditSchedule != "" {
		reconciler := reconcile.NewReconciler(mediaRepo, store, log)
		c := cron.New()
		_, err := c.AddFunc(cfg.Upload.AuditSchedule, func() {
			report, err := reconciler.Audit(context.Background())
			if err != nil {
				log.Error("scheduled thumbnail audit failed", zap.Error(err))
				return
			}
			log.Info("thumbnail audit",
				zap.Int64("total", report.Total),
				zap.Int64("with_thumbnail", report.WithThumbnail),
				zap.Int64("without_thumbnail", report.WithoutThumbnail))
		})
		if err != nil {
			return fmt.Errorf("invalid audit schedule %q: %w", cfg.Upload.AuditSchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Stop(shutdownCtx)
	})

	log.Info("festa backend started",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("bucket", cfg.MinIO.Bucket))
	return g.Wait()
}
