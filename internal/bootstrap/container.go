package bootstrap

import (
	"context"
	"log"

	"ontology-chat/internal/config"
	"ontology-chat/internal/controller"
	"ontology-chat/internal/pkg/logger"
	"ontology-chat/internal/pkg/serverutils"
	"ontology-chat/internal/repository/contract"
	"ontology-chat/internal/repository/memory"
	"ontology-chat/internal/repository/redisrepo"
	"ontology-chat/internal/service"
	"ontology-chat/internal/websocket"
	"ontology-chat/pkg/llm/factory"
	pktNats "ontology-chat/pkg/nats"
	"ontology-chat/pkg/ontology"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	OntologyController controller.IOntologyController

	// Background services (exposed for main.go to run)
	OntologyService service.IOntologyService

	// Push channel
	ChatService  service.IChatService
	WebSocketHub *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	cookie := serverutils.NewSessionCookie(cfg.App.SessionCookieSecret, cfg.App.SessionCookieName)

	// 2. Job queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	// NATS (optional: lifecycle events for out-of-process consumers)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis (ontology state + cross-instance room fan-out)
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory state", err)
		rdb = nil
	}

	// 4. Repositories
	historyRepo := memory.NewHistoryRepository()
	var stateRepo contract.OntologyStateRepository
	if rdb != nil {
		stateRepo = redisrepo.NewOntologyStateRepository(rdb)
	} else {
		stateRepo = memory.NewOntologyStateRepository()
	}

	// 5. WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/push.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. LLM provider
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 7. Services
	sessionService := service.NewSessionService(
		historyRepo,
		stateRepo,
		natsPub,
		cfg.Ontology.GeneratedDir,
		cfg.Ontology.DefaultDir,
		sysLogger,
	)
	ontologyService := service.NewOntologyService(
		pubSub,
		ontology.NewTreeBuilder(),
		stateRepo,
		wsHub,
		natsPub,
		cfg.Ontology.GeneratedDir,
		sysLogger,
	)
	chatService := service.NewChatService(
		historyRepo,
		stateRepo,
		llmProvider,
		wsHub,
		cfg.Ontology.DefaultPath,
		sysLogger,
	)

	return &Container{
		SessionController:  controller.NewSessionController(sessionService, cookie),
		OntologyController: controller.NewOntologyController(ontologyService, cookie, cfg.Upload.Dir, cfg.Upload.MaxSizeMB),
		OntologyService:    ontologyService,
		ChatService:        chatService,
		WebSocketHub:       wsHub,
	}
}
