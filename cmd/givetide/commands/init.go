package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/givetide/givetide-go/internal/casestudy"
	"github.com/givetide/givetide-go/internal/embedder"
	"github.com/givetide/givetide-go/internal/ingestion"
	"github.com/givetide/givetide-go/internal/logging"
)

// NewInitCmd constructs the `givetide init` command, which loads the case
// study dataset, embeds it, and builds the vector index.
func NewInitCmd() *cobra.Command {
	var dataFile string
	var recreate bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Build the case study vector index",
		Long: `Load the fundraising case study dataset, embed it, and build the vector index.

The index is built once and reused by 'givetide ask' and 'givetide serve'.
If an index already exists the command exits without rebuilding; pass
--recreate to replace it with a fresh build.

Required environment variables:
  CASE_STUDY_FILE      Path to the case study CSV (or pass --data)
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)
  INDEX_BACKEND        sqlite (default) or qdrant

Examples:
  givetide init --data data/case_studies.csv
  givetide init --data data/case_studies.csv --recreate
  INDEX_BACKEND=qdrant givetide init --data data/case_studies.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if dataFile == "" {
				dataFile = getEnvOrDefault("CASE_STUDY_FILE", "")
			}
			if dataFile == "" {
				return fmt.Errorf("init: a dataset is required (pass --data or set CASE_STUDY_FILE)")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("init: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("init: failed to initialise embedder: %w", err)
			}

			idx, backend, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer idx.Close()

			pipeline, err := ingestion.NewPipeline(emb, idx, nil)
			if err != nil {
				return fmt.Errorf("init: failed to create pipeline: %w", err)
			}

			exists, err := pipeline.IndexExists(ctx)
			if err != nil {
				return fmt.Errorf("init: failed to check index state: %w", err)
			}
			if exists && !recreate {
				log.Info("index already exists, skipping build (use --recreate to rebuild)",
					slog.String("backend", backend),
				)
				return nil
			}

			records, err := casestudy.Load(dataFile, log)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			log.Info("dataset loaded",
				slog.String("file", dataFile),
				slog.Int("records", len(records)),
			)

			count, err := pipeline.Build(ctx, records, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("init: index build failed: %w", err)
			}

			log.Info("index built",
				slog.String("backend", backend),
				slog.Int("nodes", count),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "Path to the case study CSV file")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Rebuild the index even if one already exists")

	return cmd
}
