package setup

import (
	"os"
	"strconv"
	"time"

	"github.com/povarna/generative-ai-agents/med-agent/internal/database"
)

type Config struct {
	AWSRegion          string
	TitanModelID       string
	EmbeddingDimension int
	CohereModelID      string
	NovaModelID        string
	DeepSeekModelID    string
	ClaudeModelID      string
	OpenAIKey          string
	OpenAIModelID      string
	NarrativeProvider  string
	StructuredProvider string

	Database     database.Config
	DBTable      string
	DBMaxRetries int

	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration

	PipelineConfigPath string
	LogLevel           string
	APIPort            string
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion:          getEnv("AWS_REGION", "us-west-2"),
		TitanModelID:       getEnv("TITAN_MODEL_ID", "amazon.titan-embed-text-v1"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		CohereModelID:      getEnv("COHERE_RERANK_MODEL_ID", "cohere.rerank-v3-5:0"),
		NovaModelID:        getEnv("NOVA_MODEL_ID", "amazon.nova-pro-v1:0"),
		DeepSeekModelID:    getEnv("DEEPSEEK_MODEL_ID", "us.deepseek.r1-v1:0"),
		ClaudeModelID:      getEnv("CLAUDE_MODEL_ID", ""),
		OpenAIKey:          getEnv("OPEN_AI_KEY", ""),
		OpenAIModelID:      getEnv("OPEN_AI_MODEL_ID", ""),
		NarrativeProvider:  getEnv("NARRATIVE_PROVIDER", "nova"),
		StructuredProvider: getEnv("STRUCTURED_PROVIDER", "deepseek"),

		Database: database.Config{
			Host:     getEnv("MED_AGENT_DB_HOST", "localhost"),
			Port:     getEnv("MED_AGENT_DB_PORT", "5432"),
			User:     getEnv("MED_AGENT_DB_USER", "postgres"),
			Password: getEnv("MED_AGENT_DB_PASSWORD", ""),
			Database: getEnv("MED_AGENT_DB_DATABASE", "postgres"),
			SSLMode:  getEnv("MED_AGENT_DB_SSLMODE", "disable"),
		},
		DBTable:      getEnv("MED_AGENT_DB_TABLE", "text_embedding"),
		DBMaxRetries: getEnvInt("MED_AGENT_DB_MAX_RETRIES", 5),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTTL:      getEnvDuration("REDIS_TTL", 24*time.Hour),

		PipelineConfigPath: getEnv("PIPELINE_CONFIG_PATH", "configs/pipeline.yaml"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		APIPort:            getEnv("MED_AGENT_API_PORT", "7860"),
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}
