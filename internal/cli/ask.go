package ragqa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/ragqa/internal/vectorindex"
)

var (
	askJSON bool
	askTopK int
)

// askCmd answers a single question from the saved index.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the saved index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question is required")
		}
		cfg, err := requireConfig()
		if err != nil {
			return err
		}

		// The index loads its artifacts lazily on the first search.
		index := vectorindex.New(indexPaths(cfg))
		p, err := newPipeline(cfg, index, askTopK)
		if err != nil {
			return err
		}

		resp, err := p.Ask(cmd.Context(), question)
		if err != nil {
			return err
		}
		warnEmptyIndex(cmd.ErrOrStderr(), index)

		out := cmd.OutOrStdout()
		if askJSON {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal response: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		warnNoGenerator(out, p, cfg)
		color.New(color.FgCyan, color.Bold).Fprint(out, "Question: ")
		fmt.Fprintln(out, resp.Query)
		color.New(color.FgGreen, color.Bold).Fprint(out, "Answer: ")
		fmt.Fprintln(out, resp.Answer)
		if len(resp.Context) > 0 {
			color.New(color.FgHiBlack).Fprintln(out, "Sources:")
			for _, src := range resp.Context {
				fmt.Fprintf(out, "  - %s\n", src)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the response as JSON")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of chunks to retrieve (overrides index.topK)")
	rootCmd.AddCommand(askCmd)
}
