package bootstrap

import (
	"log"

	"ai-assistant-be/internal/config"
	"ai-assistant-be/internal/controller"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/internal/service"
	"ai-assistant-be/pkg/agent"
	"ai-assistant-be/pkg/embedding"
	"ai-assistant-be/pkg/llm/factory"
	pktNats "ai-assistant-be/pkg/nats"
	"ai-assistant-be/pkg/plugin"
	"ai-assistant-be/pkg/plugin/calculator"
	"ai-assistant-be/pkg/plugin/clock"
	"ai-assistant-be/pkg/rag"
	"ai-assistant-be/pkg/rag/chunker"
	"ai-assistant-be/pkg/rag/corpus"
	"ai-assistant-be/pkg/store"
	memstore "ai-assistant-be/pkg/store/memory"
	redisstore "ai-assistant-be/pkg/store/redis"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Container wires every dependency once at process start. Nothing is
// looked up from ambient state; controllers and services only see what
// they are handed here.
type Container struct {
	ChatController   controller.IChatController
	HealthController controller.IHealthController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService
	Retriever       *rag.Service
	Sessions        store.SessionStore

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Embedding provider
	var embedder embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "local":
		embedder = embedding.NewLocalProvider(cfg.Ai.EmbeddingDim)
		log.Printf("[INFO] Using Embedding Provider: LOCAL (dim=%d)", cfg.Ai.EmbeddingDim)
	default:
		embedder = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbedModel, cfg.Ai.EmbeddingDim)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	}
	embedder = embedding.NewResilient(embedder, embedding.FallbackMode(cfg.Ai.EmbeddingFallback), sysLogger)

	// 4. LLM provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.LLMTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Session store
	var sessions store.SessionStore
	if cfg.Session.Backend == "memory" {
		sessions = memstore.NewSessionStore(cfg.Session.TTL)
		log.Printf("[INFO] Using Session Backend: MEMORY")
	} else {
		sessions, err = redisstore.NewSessionStore(cfg.App.RedisURL, cfg.Session.TTL)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect session store: %v", err)
		}
		log.Printf("[INFO] Using Session Backend: REDIS")
	}

	// 6. Retrieval service
	retriever := rag.NewService(
		corpus.NewDirLoader(cfg.Rag.DocsDir),
		embedder,
		chunker.New(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap),
		sysLogger,
		rag.Options{
			MaxResults:    cfg.Rag.MaxResults,
			MinSimilarity: cfg.Rag.MinSimilarity,
		},
	)

	// 7. Plugin router. The plugin set is fixed at process start.
	router := plugin.NewRouter(cfg.Plugin.ExecuteTimeout, sysLogger,
		calculator.New(),
		clock.New(),
	)

	// 8. Context assembler
	assembler := agent.NewAssembler(sessions, retriever, router, llmProvider, sysLogger, agent.Options{
		HistoryLimit: cfg.Session.HistoryLimit,
		MaxResults:   cfg.Rag.MaxResults,
		Model:        cfg.Ai.LLMModel,
		MaxTokens:    cfg.Ai.MaxTokens,
		Temperature:  cfg.Ai.Temperature,
		LLMTimeout:   cfg.Ai.LLMTimeout,
	})

	// 9. Optional NATS fan-out
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// 10. Services & controllers
	chatService := service.NewChatService(assembler, sessions, pubSub, sysLogger)
	consumerService := service.NewConsumerService(pubSub, natsPub, sysLogger)

	return &Container{
		ChatController:   controller.NewChatController(chatService),
		HealthController: controller.NewHealthController(retriever),
		ConsumerService:  consumerService,
		Retriever:        retriever,
		Sessions:         sessions,
		Logger:           sysLogger,
	}
}
