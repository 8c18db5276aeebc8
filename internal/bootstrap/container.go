package bootstrap

import (
	"context"
	"log"

	"prior-auth-be/internal/config"
	"prior-auth-be/internal/controller"
	"prior-auth-be/internal/handler"
	"prior-auth-be/internal/pkg/logger"
	"prior-auth-be/internal/pkg/mailer"
	"prior-auth-be/internal/repository/memory"
	"prior-auth-be/internal/repository/unitofwork"
	"prior-auth-be/internal/service"
	"prior-auth-be/internal/websocket"
	"prior-auth-be/pkg/embedding"
	"prior-auth-be/pkg/engine"

	pktNats "prior-auth-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	CaseController controller.ICaseController

	// Background Services (Exposed for main.go to run)
	AuditService service.IAuditService

	// WebSockets & Notification
	CaseWatchHandler *handler.CaseWatchHandler
	WebSocketHub     *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/casewatch.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	auditPublisher := service.NewPublisherService(cfg.Workflow.AuditTopic, pubSub)
	auditService := service.NewAuditService(pubSub, cfg.Workflow.AuditTopic, uowFactory)

	embedder := embedding.NewHashingProvider(64)
	cohortService := service.NewCohortService(uowFactory, embedder)

	caseService := service.NewCaseService(
		uowFactory,
		natsPub,
		auditPublisher,
		emailService,
		cohortService,
		sysLogger,
	)

	// Stage execution is delegated to the analysis engine; fragment streams
	// ride the same NATS connection as the event bus.
	var nc *natsgo.Conn
	if natsPub != nil {
		nc = natsPub.Conn()
	}
	engineClient := engine.NewClient(cfg.Engine.BaseURL, nc, sysLogger)

	sessionRepo := memory.NewOrchestratorRepository()
	sessionService := service.NewSessionService(
		sessionRepo,
		caseService,
		auditService,
		engineClient,
		wsHub,
		sysLogger,
	)

	authService := service.NewAuthService(uowFactory, cfg.Auth)

	// 3.5 Case Event Consumer
	notifService := service.NewNotificationService(natsSub, sessionService, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	// Handler
	watchHandler := handler.NewCaseWatchHandler(natsPub, wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		CaseWatchHandler: watchHandler,
		WebSocketHub:     wsHub,
		AuthController:   controller.NewAuthController(authService),
		CaseController:   controller.NewCaseController(caseService, sessionService, cohortService),

		AuditService: auditService,
	}
}
