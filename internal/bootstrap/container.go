package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hmo-assistant-be/internal/config"
	"hmo-assistant-be/internal/controller"
	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/repository/contract"
	"hmo-assistant-be/internal/repository/implementation"
	"hmo-assistant-be/internal/repository/memory"
	"hmo-assistant-be/internal/repository/redis"
	"hmo-assistant-be/internal/service"
	"hmo-assistant-be/internal/websocket"
	"hmo-assistant-be/pkg/embedding"
	"hmo-assistant-be/pkg/events"
	"hmo-assistant-be/pkg/llm/factory"
	pktNats "hmo-assistant-be/pkg/nats"
	"hmo-assistant-be/pkg/rag/conversation"
	"hmo-assistant-be/pkg/rag/extraction"
	"hmo-assistant-be/pkg/rag/message"
	"hmo-assistant-be/pkg/rag/response"
	"hmo-assistant-be/pkg/rag/search"
)

const conversationTopic = "conversation_events"

type Container struct {
	Logger logger.ILogger

	// Controllers
	SessionController controller.ISessionController
	CorpusController  controller.ICorpusController

	// Background Services (Exposed for main.go to run)
	ConversationService service.IConversationService
	ConsumerService     service.IConsumerService
	WebSocketHub        *websocket.Hub

	closers []func() error
}

// NewContainer wires the application. ctx bounds websocket turns and is
// expected to be cancelled on shutdown.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)
	publisherService := service.NewPublisherService(conversationTopic, pubSub)

	// 2. AI Providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.EmbeddingModel,
		cfg.EmbeddingKey(),
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	provider, model, apiKey := cfg.LLMSettings()
	llmProvider, err := factory.NewLLMProvider(factory.Settings{
		Provider:        provider,
		Model:           model,
		BaseURL:         cfg.Ai.OllamaBaseURL,
		APIKey:          apiKey,
		AzureEndpoint:   cfg.Keys.AzureEndpoint,
		AzureAPIVersion: cfg.Keys.AzureAPIVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info("SERVER", "AI providers ready", map[string]interface{}{
		"embedding": cfg.Ai.EmbeddingProvider,
		"llm":       provider,
		"model":     model,
	})

	// 3. Infrastructure
	rdb, err := connectRedis(ctx, cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		c.closers = append(c.closers, rdb.Close)
	}

	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("NATS", "Event forwarding disabled", map[string]interface{}{"error": err.Error()})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 4. Sessions
	var sessions contract.SessionRepository
	if cfg.App.SessionBackend == "redis" {
		sessions = redis.NewSessionRepository(rdb, cfg.Conversation.SessionTimeout, 0)
	} else {
		sessions = memory.NewSessionRepository(
			cfg.Conversation.SessionTimeout,
			cfg.Conversation.SweepInterval,
			memory.WithExpiryHook(func(id string) {
				event := events.New(events.SessionExpired, time.Now(), map[string]interface{}{"session_id": id})
				if err := publisherService.Publish(context.Background(), event); err != nil {
					sysLogger.Warn("EVENTS", "Failed to publish expiry", map[string]interface{}{"session_id": id, "error": err.Error()})
				}
			}),
		)
	}

	// 5. Conversation Pipeline
	corpusRepo := implementation.NewCorpusRepository(db)
	retriever := search.NewOrchestrator(embeddingProvider, corpusRepo, search.Config{
		DBThreshold: search.DefaultConfig().DBThreshold,
		TopK:        cfg.Search.TopK,
		HMOBoost:    cfg.Search.HMOBoost,
		TierBoost:   cfg.Search.TierBoost,
	}, sysLogger)

	messages := message.NewFactory(nil)
	orchestrator := conversation.NewOrchestrator(
		extraction.NewLLMExtractor(llmProvider, sysLogger),
		retriever,
		response.NewLLMComposer(llmProvider, sysLogger),
		messages,
		conversation.Config{
			HistoryWindow:     cfg.Conversation.HistoryWindow,
			ConfirmMaxRetries: cfg.Conversation.ConfirmMaxRetries,
			CapabilityTimeout: cfg.Conversation.CapabilityTimeout,
			MinRelevance:      cfg.Search.MinRelevance,
		},
		sysLogger,
	)

	// 6. Services
	var hubRedis goredis.UniversalClient
	if rdb != nil {
		hubRedis = rdb
	}
	c.WebSocketHub = websocket.NewHub(hubRedis, sysLogger)

	c.ConversationService = service.NewConversationService(sessions, orchestrator, messages, publisherService, sysLogger)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		conversationTopic,
		logger.NewIsolatedLogger(cfg.App.AuditLogFilePath),
		forwarder,
		c.WebSocketHub,
		sysLogger,
	)
	corpusService := service.NewCorpusService(corpusRepo)

	// 7. Controllers
	c.SessionController = controller.NewSessionController(ctx, c.ConversationService, c.WebSocketHub, cfg.App.JwtSecret, sysLogger)
	c.CorpusController = controller.NewCorpusController(corpusService)

	return c, nil
}

// connectRedis returns nil when Redis is optional and unreachable; the
// websocket hub then only reaches sockets on this instance.
func connectRedis(ctx context.Context, cfg *config.Config, log logger.ILogger) (*goredis.Client, error) {
	required := cfg.App.SessionBackend == "redis"
	if cfg.App.RedisURL == "" {
		if required {
			return nil, fmt.Errorf("SESSION_BACKEND=redis requires REDIS_URL")
		}
		return nil, nil
	}

	opt, err := goredis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("SERVER", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &goredis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := goredis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		if required {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Warn("SERVER", "Redis unavailable, websocket fan-out is local only", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}
	return rdb, nil
}

// Close releases the bus and network clients in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("SERVER", "Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
