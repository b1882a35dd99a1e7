package main

import (
	"Sodium/internal/api/config"
	"Sodium/internal/pkg/database"
	"Sodium/internal/pkg/es"
	"Sodium/internal/pkg/kafka"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/logger"
	"Sodium/internal/pkg/minio"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/redis"
	"Sodium/internal/wire"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sodium",
	Short: "Sodium AI character companion backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		if err := config.LoadConfig(configPath); err != nil {
			return err
		}
		// 初始化日志
		logger.InitLogger()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server, job scheduler and queue consumers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update relational tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbCfg := config.Cfg.DB
		db, err := database.NewGormDB(&dbCfg)
		if err != nil {
			return err
		}
		if err = database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("Migration finished")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./configs/config.yaml)")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port, overrides server.port")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("Fatal error", "err", err)
		os.Exit(1)
	}
}

func serve() error {
	cfg := config.Cfg

	// 数据库连接
	dbCfg := cfg.DB
	db, err := database.NewGormDB(&dbCfg)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	if dbCfg.Driver == "sqlite" {
		if err = database.AutoMigrate(db); err != nil {
			return err
		}
	}

	// Redis 连接
	if err = redis.InitRedis(cfg.Redis); err != nil {
		return fmt.Errorf("failed to create redis connection: %w", err)
	}

	// Mongo 连接
	mongoConn, err := mongo.InitMongo(cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to create mongo connection: %w", err)
	}

	// MinIO 连接
	if err = minio.Init(cfg.MinIO); err != nil {
		return fmt.Errorf("failed to initialize MinIO: %w", err)
	}

	if err = os.MkdirAll(cfg.Server.TempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// llm 模型初始化
	dispatcher, moderator, err := llm.InitLLM(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm models: %w", err)
	}

	infra := &wire.Infra{
		DB:         db,
		Mongo:      mongoConn,
		Dispatcher: dispatcher,
		Moderator:  moderator,
	}

	// ElasticSearch 连接
	if cfg.Elastic.Enabled {
		client, err := es.InitClient(cfg.Elastic)
		if err != nil {
			return fmt.Errorf("failed to initialize ElasticSearch: %w", err)
		}
		infra.Elastic = es.NewCharacterRepo(client, cfg.Elastic.CharacterIndex)
	}

	// Kafka 生产者
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewSyncProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("failed to create kafka producer: %w", err)
		}
		infra.AuditSender = kafka.NewCommentAuditProducer(producer, cfg.Kafka.CommentAudit.Topic)
		defer func() { _ = infra.AuditSender.Close() }()
	}

	// 依赖注入
	app, err := wire.BuildApplication(ctx, infra, cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// 定时任务
	if err = app.CronMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cron jobs: %w", err)
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// Kafka 消费者
	if app.KafkaManager != nil {
		g.Go(func() error {
			log.Info("Kafka Consumers starting...")
			return app.KafkaManager.Start(ctx)
		})
	}

	// HTTP 服务器
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
		return err
	}
	log.Info("App exited successfully.")
	return nil
}
