package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/givetide/givetide-go/internal/embedder"
	"github.com/givetide/givetide-go/internal/logging"
	"github.com/givetide/givetide-go/internal/server"
	"github.com/givetide/givetide-go/internal/tracing"
)

// NewServeCmd constructs the `givetide serve` command, which starts the HTTP
// server exposing the advisor as a JSON API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GiveTide HTTP server",
		Long: `Start the GiveTide HTTP server on localhost.

The server exposes POST /api/advise for advice requests, plus health,
readiness, and Prometheus metrics endpoints. Run 'givetide init' first so
the index is available.

Examples:
  givetide serve
  givetide serve --port 9090
  MODEL_PROVIDER=openai givetide serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			idx, backend, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer idx.Close()

			adv, err := buildAdvisor(ctx, emb, idx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))
			pingers := []server.Pinger{
				server.NewIndexPinger(idx, backend),
				server.NewEmbedderPinger(emb, embBackend),
			}

			bindHost, bindPort := resolveBind(host, port)
			srv, err := server.New(adv, &server.Config{
				Host:    bindHost,
				Port:    bindPort,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("GIVETIDE_API_KEY"),
			}, nil)
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default 8080)")

	return cmd
}

// resolveBind picks the listen address: explicit flags win, then the
// GIVETIDE_HOST/GIVETIDE_PORT values the config layer exports, then the
// server's own defaults via the zero values.
func resolveBind(flagHost string, flagPort int) (string, int) {
	host := flagHost
	if host == "" {
		host = os.Getenv("GIVETIDE_HOST")
	}
	port := flagPort
	if port == 0 {
		port = getEnvInt("GIVETIDE_PORT", 0)
	}
	return host, port
}
