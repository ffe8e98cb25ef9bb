package setup

import (
	"context"
	"fmt"

	"github.com/povarna/generative-ai-agents/med-agent/internal/bedrock"
	"github.com/povarna/generative-ai-agents/med-agent/internal/config"
	"github.com/povarna/generative-ai-agents/med-agent/internal/database"
	"github.com/povarna/generative-ai-agents/med-agent/internal/embedding"
	"github.com/povarna/generative-ai-agents/med-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/med-agent/internal/llm/gpt"
	"github.com/povarna/generative-ai-agents/med-agent/internal/pipeline"
	"github.com/povarna/generative-ai-agents/med-agent/internal/redis"
	"github.com/povarna/generative-ai-agents/med-agent/internal/synthesis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Dependencies is the process-wide client set, built once and shared by every request.
type Dependencies struct {
	Service  *pipeline.Service
	DB       *database.DB
	Bedrock  *bedrock.Client
	Titan    *bedrock.TitanEmbedder
	Redis    *goredis.Client
	Pipeline *config.PipelineConfig
	Logger   *zerolog.Logger
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	pipelineCfg, err := config.LoadPipelineConfig(cfg.PipelineConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	bedrockClient, err := bedrock.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
	}

	db, err := ConnectDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		DB:       db,
		Bedrock:  bedrockClient,
		Titan:    bedrock.NewTitanEmbedder(bedrockClient, cfg.TitanModelID, cfg.EmbeddingDimension),
		Pipeline: pipelineCfg,
		Logger:   logger,
	}

	var embedder pipeline.Embedder = deps.Titan
	if cfg.RedisAddr != "" {
		redisClient, err := redis.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 3)
		if err != nil {
			// the cache is optional
			logger.Warn().Err(err).Msg("Redis unavailable, query embedding cache disabled")
		} else {
			deps.Redis = redisClient
			embedder = embedding.NewCachedEmbedder(deps.Titan, redis.NewStore(redisClient), cfg.TitanModelID, cfg.RedisTTL, logger)
		}
	}

	narrativeClient, err := createLLMClient(cfg.NarrativeProvider, bedrockClient, cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create narrative model client: %w", err)
	}

	structuredClient, err := createLLMClient(cfg.StructuredProvider, bedrockClient, cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create structured model client: %w", err)
	}

	narrator, err := synthesis.NewNarrator(narrativeClient, pipelineCfg.Narrative, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	structurer, err := synthesis.NewStructurer(structuredClient, pipelineCfg.Structured, pipelineCfg.Evidence.Budget, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	reranker := bedrock.NewCohereReranker(bedrockClient, cfg.CohereModelID, pipelineCfg.Rerank.TopN)

	deps.Service = pipeline.NewService(
		db,
		embedder,
		reranker,
		narrator,
		structurer,
		pipeline.Options{
			MaxResults:     pipelineCfg.Retrieval.MaxResults,
			EvidenceBudget: pipelineCfg.Evidence.Budget,
		},
		logger,
	)

	logger.Info().
		Str("narrative_provider", cfg.NarrativeProvider).
		Str("structured_provider", cfg.StructuredProvider).
		Bool("embedding_cache", deps.Redis != nil).
		Msg("Dependencies wired")

	return deps, nil
}

// ConnectDatabase opens the document store with the configured table.
func ConnectDatabase(ctx context.Context, cfg *Config) (*database.DB, error) {
	db, err := database.NewWithBackoff(ctx, cfg.Database, cfg.DBMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	return db.WithStore(database.StoreConfig{Table: cfg.DBTable}), nil
}

func createLLMClient(provider string, bedrockClient *bedrock.Client, cfg *Config) (llm.LLMClient, error) {
	switch provider {
	case "nova":
		return bedrock.NewNovaClient(bedrockClient, cfg.NovaModelID), nil
	case "deepseek":
		return bedrock.NewDeepSeekClient(bedrockClient, cfg.DeepSeekModelID), nil
	case "claude":
		if cfg.ClaudeModelID == "" {
			return nil, fmt.Errorf("CLAUDE_MODEL_ID is required for the claude provider")
		}
		return bedrock.NewClaudeClient(bedrockClient, cfg.ClaudeModelID), nil
	case "openai":
		return gpt.NewClient(cfg.OpenAIKey, cfg.OpenAIModelID)
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}
