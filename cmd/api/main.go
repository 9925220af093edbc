package main

import (
	"context"
	"errors"
	"flag"
	"gamewatch/internal/activity"
	"gamewatch/internal/aws"
	"gamewatch/internal/cache"
	"gamewatch/internal/config"
	"gamewatch/internal/controller"
	"gamewatch/internal/database"
	"gamewatch/internal/orchestrator"
	"gamewatch/internal/orchestrator/worker"
	"gamewatch/internal/rabbitmq"
	"gamewatch/internal/server"
	"gamewatch/pkg/store"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeClient := store.New(cfg.Store.APIKey, cfg.Store.BaseURL, cfg.Store.Timeout(), cfg.Store.RequestsPerMinute)
	defer storeClient.Close()

	var reportCache cache.Cache
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize redis cache connection")
		}
		reportCache = redisCache
	} else {
		log.Warn().Msg("No redis address configured, caching reports in memory")
		reportCache = cache.NewMemoryCache()
	}
	defer reportCache.Close()

	ac := controller.NewActivityController(storeClient, reportCache, cfg.Report.CacheTTL(), activity.SystemClock)

	var (
		db     database.Database
		rc     controller.ReportController
		rabbit rabbitmq.Client
		jc     controller.JobController
	)

	if cfg.MongoDB.URI != "" {
		db, err = database.New(ctx, cfg.MongoDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}

		var files aws.FileService
		if cfg.AWS.Enabled() {
			files, err = aws.NewFileService(ctx, cfg.AWS, cfg.Report.ExportBucketPrefix)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize S3 file service")
			}
			if err := files.TestConnection(ctx); err != nil {
				log.Warn().Err(err).Msg("S3 bucket not reachable, exports may fail")
			}
		}

		rc = controller.NewReportController(ac, db, files, cfg.Report.CompactLimit)
	} else {
		log.Warn().Msg("No MongoDB uri configured, report storage and jobs disabled")
	}

	if cfg.RabbitMQ.Host != "" && rc != nil {
		rabbit, err = rabbitmq.NewClientFromConfig(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create RabbitMQ client")
		}

		registry := orchestrator.NewWorkerRegistry(worker.NewReportWorker(rc, cfg.Report.Timezone))
		jc = controller.NewJobController(db, rabbit, cfg.RabbitMQ, cfg.Jobs, cfg.Report.Timezone, registry)

		if cfg.Jobs.Consume {
			if err := jc.ProcessJobs(ctx); err != nil {
				log.Fatal().Err(err).Msg("Failed to start job processing")
			}
		}
	}

	sc := controller.NewServer(db, reportCache, rabbit)
	httpServer := server.New(*cfg, sc, ac, rc, jc)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("env", cfg.Env).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if jc != nil {
		jc.StopProcessing()
	}
	if rabbit != nil {
		if err := rabbit.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ client")
		}
	}
	if db != nil {
		if err := db.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}
}

func setupLogger(config config.LoggingConfig) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch config.Format {
	case "json":
		// JSON is the default for zerolog
	case "console", "combined":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	log.Logger = log.With().Timestamp().Logger()
}
