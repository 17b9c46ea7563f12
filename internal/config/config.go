package config

import (
	"os"
	"strconv"
	"time"

	"cloneops/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	AI      AIConfig
	Server  ServerConfig
	Data    DataConfig
	Eval    EvalConfig
	Chatbot ChatbotConfig
}

// AIConfig holds AI/LLM related settings
type AIConfig struct {
	OpenAIKey     string
	BaseURL       string
	ChatModel     string
	ClassifyModel string
	InsightModel  string
	FallbackModel string
	DetectModel   string
	ActionModel   string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds flat-file data paths. The corpus file and results file
// are searched across candidate directories so local and deployed layouts
// both resolve.
type DataConfig struct {
	CorpusFile  string
	ResultsFile string
	ProfilesDir string
	FacepackDir string
	SearchRoots []string
}

// EvalConfig holds clone evaluation settings
type EvalConfig struct {
	Concurrency int
}

// ChatbotConfig holds the external chatbot configuration API settings
type ChatbotConfig struct {
	BaseURL   string
	PartnerID string
	ChatbotID string
	ShopID    string
}

// Evaluation concurrency bounds. Workers pull persona indices from a shared
// counter, so the bound caps in-flight LLM calls, not partitioning.
const (
	DefaultEvalConcurrency = 8
	MinEvalConcurrency     = 1
	MaxEvalConcurrency     = 16
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		AI:      loadAIConfig(),
		Server:  loadServerConfig(),
		Data:    loadDataConfig(),
		Eval:    loadEvalConfig(),
		Chatbot: loadChatbotConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAIConfig() AIConfig {
	return AIConfig{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		BaseURL:       getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:     getEnvOrDefault("CHAT_MODEL", "gpt-5-mini"),
		ClassifyModel: getEnvOrDefault("CLASSIFY_MODEL", "gpt-4.1-mini"),
		InsightModel:  getEnvOrDefault("INSIGHT_MODEL", "gpt-4o"),
		FallbackModel: getEnvOrDefault("INSIGHT_FALLBACK_MODEL", "gpt-5-mini"),
		DetectModel:   getEnvOrDefault("DETECT_MODEL", "gpt-4.1-mini"),
		ActionModel:   getEnvOrDefault("ACTION_MODEL", "gpt-4o-mini"),
		Temperature:   getEnvFloatOrDefault("LLM_TEMPERATURE", 0.3),
		MaxTokens:     getEnvIntOrDefault("LLM_MAX_TOKENS", 1024),
		Timeout:       time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_MS", 12000)) * time.Millisecond,
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadDataConfig() DataConfig {
	cwd, _ := os.Getwd()
	roots := []string{cwd}
	if extra := os.Getenv("DATA_DIR"); extra != "" {
		roots = append(roots, extra)
	}
	roots = append(roots, "data")
	return DataConfig{
		CorpusFile:  getEnvOrDefault("CORPUS_FILE", "simulator_prompts.json"),
		ResultsFile: getEnvOrDefault("RESULTS_FILE", "simulation_results.json"),
		ProfilesDir: getEnvOrDefault("PROFILES_DIR", "user_profiles"),
		FacepackDir: getEnvOrDefault("FACEPACK_DIR", "user_facepack"),
		SearchRoots: roots,
	}
}

func loadEvalConfig() EvalConfig {
	n := getEnvIntOrDefault("EVAL_CONCURRENCY", DefaultEvalConcurrency)
	if n < MinEvalConcurrency {
		n = MinEvalConcurrency
	}
	if n > MaxEvalConcurrency {
		n = MaxEvalConcurrency
	}
	return EvalConfig{Concurrency: n}
}

func loadChatbotConfig() ChatbotConfig {
	return ChatbotConfig{
		BaseURL:   os.Getenv("CHATBOT_BASE_URL"),
		PartnerID: os.Getenv("CHATBOT_PARTNER_ID"),
		ChatbotID: os.Getenv("CHATBOT_ID"),
		ShopID:    os.Getenv("CHATBOT_SHOP_ID"),
	}
}

func validateConfig(config *Config) error {
	if config.AI.OpenAIKey == "" {
		return errors.ConfigInvalid("OPENAI_API_KEY is required")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
