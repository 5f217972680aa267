package ragqa

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/ragqa/internal/rag"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

var previewTopK int

// previewCmd shows retrieval and context assembly for a query without
// generating an answer.
var previewCmd = &cobra.Command{
	Use:   "preview <query>",
	Short: "Preview retrieval and context assembly",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("query is required")
		}
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		index := vectorindex.New(indexPaths(cfg))
		p, err := newPipeline(cfg, index, previewTopK)
		if err != nil {
			return err
		}
		if err := rag.Preview(cmd.Context(), cmd.OutOrStdout(), p, query, p.TopK()); err != nil {
			return err
		}
		warnEmptyIndex(cmd.ErrOrStderr(), index)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewTopK, "top-k", 0, "number of chunks to retrieve (overrides index.topK)")
	rootCmd.AddCommand(previewCmd)
}
