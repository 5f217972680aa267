package ragqa

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/ragqa/internal/tui"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

// chatCmd starts the interactive question loop.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		paths := indexPaths(cfg)
		p, err := newPipeline(cfg, vectorindex.New(paths), 0)
		if err != nil {
			return err
		}
		warnNoGenerator(cmd.ErrOrStderr(), p, cfg)
		return tui.Run(cmd.Context(), p, paths.Vectors)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
