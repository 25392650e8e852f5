package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"
)

// NewFromEnv constructs a ChatModel for the given tier by reading provider
// configuration from environment variables. MODEL_PROVIDER selects the
// backend; each backend uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER = ollama | openai | azure | gemini | ark (default: ollama)
//
//	Ollama: OLLAMA_HOST (default: http://localhost:11434),
//	        OLLAMA_MODEL (default: llama3), OLLAMA_FAST_MODEL (default: OLLAMA_MODEL)
//	OpenAI: OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o),
//	        OPENAI_FAST_MODEL (default: gpt-4o-mini)
//	Azure:  AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	        AZURE_OPENAI_FAST_DEPLOYMENT (default: AZURE_OPENAI_DEPLOYMENT),
//	        AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Gemini: GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-pro),
//	        GEMINI_FAST_MODEL (default: gemini-1.5-flash)
//	Ark:    ARK_API_KEY, ARK_BASE_URL, ARK_MODEL, ARK_FAST_MODEL (default: ARK_MODEL)
//
//	Shared: MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.2)
func NewFromEnv(ctx context.Context, tier Tier) (model.ToolCallingChatModel, error) {
	return New(ctx, ConfigFromEnv(), tier)
}

// ConfigFromEnv resolves a full Config from environment variables without
// constructing anything. Callers that need both tiers resolve the config
// once and call New twice.
func ConfigFromEnv() *Config {
	ollamaModel := getEnvOrDefault("OLLAMA_MODEL", "llama3")
	arkModel := os.Getenv("ARK_MODEL")
	azureDeployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")

	return &Config{
		Backend: Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOllama))),
		Ollama: ProviderOllama{
			Host:          getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			DetailedModel: ollamaModel,
			FastModel:     getEnvOrDefault("OLLAMA_FAST_MODEL", ollamaModel),
		},
		OpenAI: ProviderOpenAI{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			DetailedModel: getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
			FastModel:     getEnvOrDefault("OPENAI_FAST_MODEL", "gpt-4o-mini"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:             os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:           os.Getenv("AZURE_OPENAI_ENDPOINT"),
			DetailedDeployment: azureDeployment,
			FastDeployment:     getEnvOrDefault("AZURE_OPENAI_FAST_DEPLOYMENT", azureDeployment),
			APIVersion:         getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Gemini: ProviderGemini{
			APIKey:        os.Getenv("GOOGLE_API_KEY"),
			DetailedModel: getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro"),
			FastModel:     getEnvOrDefault("GEMINI_FAST_MODEL", "gemini-1.5-flash"),
		},
		Ark: ProviderArk{
			APIKey:        os.Getenv("ARK_API_KEY"),
			BaseURL:       os.Getenv("ARK_BASE_URL"),
			DetailedModel: arkModel,
			FastModel:     getEnvOrDefault("ARK_FAST_MODEL", arkModel),
		},
		Tuning: SharedTuning{
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
			Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
		},
	}
}

// New constructs a ChatModel for the given tier from an explicit Config,
// delegating to the appropriate backend constructor. It validates the
// config first so callers get a clear error at startup rather than on the
// first request.
func New(ctx context.Context, cfg *Config, tier Tier) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg, tier)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg, tier)
	case BackendAzure:
		return newAzure(ctx, cfg, tier)
	case BackendGemini:
		return newGemini(ctx, cfg, tier)
	case BackendArk:
		return newArk(ctx, cfg, tier)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q, valid values: ollama, openai, azure, gemini, ark", cfg.Backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
