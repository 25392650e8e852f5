package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/givetide/givetide-go/internal/advisor"
	"github.com/givetide/givetide-go/internal/embedder"
	"github.com/givetide/givetide-go/internal/logging"
)

// NewAskCmd constructs the `givetide ask` command, which answers a single
// fundraising question and prints the advice with its supporting case studies.
func NewAskCmd() *cobra.Command {
	var fast bool
	var noEnhance bool
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask for fundraising campaign advice",
		Long: `Ask the advisor a natural language question about running a fundraising campaign.

The advisor retrieves the most relevant case studies from the index and
generates advice grounded in them. Run 'givetide init' first to build the index.

Examples:
  givetide ask "how do we convert one-time donors into monthly givers?"
  givetide ask --fast "ideas for a year-end matching campaign"
  givetide ask --top-k 8 "what works for small arts organizations?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			idx, _, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer idx.Close()

			adv, err := buildAdvisor(ctx, emb, idx)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			result, err := adv.Advise(ctx, advisor.Request{
				Query:              strings.Join(args, " "),
				Fast:               fast,
				DisableEnhancement: noEnhance,
				TopK:               topK,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(os.Stdout, result.Advice)

			if len(result.References) > 0 {
				fmt.Fprintln(os.Stdout, "\nCase studies referenced:")
				for i, ref := range result.References {
					fmt.Fprintf(os.Stdout, "  %d. %s (relevance %.2f)\n", i+1, ref.Title, ref.Score)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fast, "fast", false, "Use the fast model tier (lower latency, shorter advice)")
	cmd.Flags().BoolVar(&noEnhance, "no-enhance", false, "Skip query enhancement")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of case studies to retrieve (default 5)")

	return cmd
}
