package wire

import (
	"Sodium/internal/api"
	"Sodium/internal/api/config"
	"Sodium/internal/api/handler"
	"Sodium/internal/job"
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/es"
	"Sodium/internal/pkg/kafka"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mail"
	"Sodium/internal/pkg/minio"
	sodiumMongo "Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/redis"
	"Sodium/internal/pkg/security"
	"Sodium/internal/repository"
	"Sodium/internal/service"
	"context"
	log "log/slog"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Infra 已建立连接的外部依赖
type Infra struct {
	DB          *gorm.DB
	Mongo       *mongo.Database
	Elastic     es.CharacterRepo
	Dispatcher  *llm.Dispatcher
	Moderator   llm.Moderator
	AuditSender *kafka.CommentAuditProducer
}

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager
}

func BuildApplication(ctx context.Context, infra *Infra, cfg *config.Config) (*ApplicationContainer, error) {
	db := infra.DB

	// repository
	repos := repository.NewRepos(db)
	uow := repository.NewUnitOfWork(db)
	memoryRepo := sodiumMongo.NewMemoryRepo(infra.Mongo)
	notificationRepo := sodiumMongo.NewNotificationRepo(infra.Mongo)
	jobRepo := sodiumMongo.NewScheduledJobRepo(infra.Mongo)

	// 基础组件
	store := redis.NewStore(redis.Rdb)
	storage := minio.NewStorage(minio.Client, cfg.MinIO)
	mailer := mail.NewSender(cfg.Mail)
	tokens := security.NewTokenManager(cfg.JWT)
	cronMgr := cron.NewCronManager(jobRepo, cfg.Scheduler.SweepSpec)
	composer, err := llm.NewComposer()
	if err != nil {
		return nil, err
	}

	searchRepo := infra.Elastic
	if searchRepo == nil {
		searchRepo = es.NewNoopCharacterRepo()
	}
	var auditQueue service.CommentAuditQueue
	if infra.AuditSender != nil {
		auditQueue = infra.AuditSender
	}

	// service
	moderationCfg := cfg.Moderation
	notificationService := service.NewNotificationService(notificationRepo)
	memoryService := service.NewMemoryService(memoryRepo, repos.Characters)
	suspendService := service.NewSuspendService(repos.Users, repos.Moderation, uow, notificationService, cronMgr, mailer,
		moderationCfg.SuspendDays, moderationCfg.BanThreshold)
	reportService := service.NewReportService(repos.Users, uow, store, suspendService, moderationCfg.UserReportThreshold)
	followService := service.NewFollowService(repos.Characters, repos.Relations, uow, notificationService)
	characterService := service.NewCharacterService(repos.Characters, repos.Relations, uow, searchRepo, storage,
		infra.Moderator, memoryService, suspendService, notificationService)
	commentService := service.NewCommentService(repos.Comments, repos.Characters, repos.Users, uow, infra.Moderator,
		suspendService, notificationService, auditQueue, moderationCfg.CommentReportThreshold)
	communicateService := service.NewCommunicateService(repos.Characters, repos.Relations, uow, memoryService, suspendService,
		notificationService, cronMgr, infra.Moderator, composer, infra.Dispatcher, moderationCfg.ChatEnabled, cfg.Scheduler.ReminderAfter)
	otpService := service.NewOTPService(store, cfg.OTP.TTL, cfg.OTP.MaxAttempts)
	userService := service.NewUserService(repos.Users, repos.Characters, otpService, tokens, store, storage,
		infra.Moderator, mailer, suspendService)

	// 延时任务
	cronMgr.Register(cron.JobSendEmail, job.NewSendEmailJob(mailer).Handle)
	cronMgr.Register(cron.JobPushNotification, job.NewPushNotificationJob(notificationService).Handle)

	handlers := &api.HandlersGroup{
		AuthHandler:         handler.NewAuthHandler(userService, tokens),
		UserHandler:         handler.NewUserHandler(userService, reportService, followService, characterService),
		CharacterHandler:    handler.NewCharacterHandler(characterService, followService, memoryService),
		CommunicateHandler:  handler.NewCommunicateHandler(communicateService),
		CommentHandler:      handler.NewCommentHandler(commentService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		AdminHandler:        handler.NewAdminHandler(characterService, suspendService, userService),
	}

	router := api.SetupRouter(handlers, api.RouterDeps{
		Tokens:       tokens,
		Revocation:   userService,
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	app := &ApplicationContainer{
		Router:     router,
		DB:         db,
		CronMgr:    cronMgr,
	}

	if cfg.Kafka.Enabled {
		kafkaMgr, err := kafka.NewConsumerManager(cfg.Kafka, commentService.Remoderate)
		if err != nil {
			return nil, err
		}
		app.KafkaManager = kafkaMgr
	} else {
		log.InfoContext(ctx, "kafka disabled, reported comments are re-moderated in process")
	}

	return app, nil
}
