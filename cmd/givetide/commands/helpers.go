package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/givetide/givetide-go/internal/advisor"
	"github.com/givetide/givetide-go/internal/index"
	"github.com/givetide/givetide-go/internal/provider"
)

// getEnvOrDefault returns the env var value, or fallback if unset/empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback on absence or
// parse failure.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// defaultIndexDir resolves the default on-disk index location
// (~/.givetide/index).
func defaultIndexDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".givetide", "index"), nil
}

// buildIndex constructs the vector index selected by INDEX_BACKEND
// (sqlite by default, qdrant for a shared deployment) and returns it with
// a short backend label for logging and readiness probes.
func buildIndex(log *slog.Logger) (index.Index, string, error) {
	backend := getEnvOrDefault("INDEX_BACKEND", "sqlite")

	switch backend {
	case "sqlite":
		dir := os.Getenv("INDEX_DIR")
		if dir == "" {
			var err error
			dir, err = defaultIndexDir()
			if err != nil {
				return nil, "", err
			}
		}
		idx, err := index.NewSQLiteIndex(dir)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite index: %w", err)
		}
		log.Info("index: sqlite backend", slog.String("dir", dir))
		return idx, "sqlite", nil

	case "qdrant":
		cfg := &index.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "givetide-case-studies"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		}
		idx, err := index.NewQdrantIndex(cfg)
		if err != nil {
			return nil, "", fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		log.Info("index: qdrant backend",
			slog.String("host", cfg.Host),
			slog.Int("port", cfg.Port),
			slog.String("collection", cfg.Collection),
		)
		return idx, "qdrant", nil

	default:
		return nil, "", fmt.Errorf("unknown INDEX_BACKEND %q (expected sqlite or qdrant)", backend)
	}
}

// buildAdvisor wires the full query-time stack: both model tiers, the
// retriever over the given index, and the fail-open query enhancer running
// on the fast tier.
func buildAdvisor(ctx context.Context, emb index.Embedder, idx index.Index) (*advisor.Advisor, error) {
	fastModel, err := provider.NewFromEnv(ctx, provider.TierFast)
	if err != nil {
		return nil, fmt.Errorf("initialise fast model: %w", err)
	}
	detailedModel, err := provider.NewFromEnv(ctx, provider.TierDetailed)
	if err != nil {
		return nil, fmt.Errorf("initialise detailed model: %w", err)
	}

	retriever, err := advisor.NewRetriever(emb, idx, advisor.DefaultTopK)
	if err != nil {
		return nil, fmt.Errorf("initialise retriever: %w", err)
	}

	enhancer, err := advisor.NewEnhancer(fastModel)
	if err != nil {
		return nil, fmt.Errorf("initialise enhancer: %w", err)
	}

	adv, err := advisor.New(retriever, fastModel, detailedModel, advisor.WithEnhancer(enhancer))
	if err != nil {
		return nil, fmt.Errorf("initialise advisor: %w", err)
	}
	return adv, nil
}
