package ragqa

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/ragqa/internal/logging"
	"github.com/mwiater/ragqa/internal/rag"
	"github.com/mwiater/ragqa/internal/server"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

var serveAddr string

// serveCmd exposes the pipeline over HTTP using the saved index.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API over the saved index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		paths := indexPaths(cfg)
		index := vectorindex.New(paths)
		loaded, err := index.Load(paths)
		switch {
		case err != nil:
			color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "Could not load index: %v\n", err)
		case !loaded:
			color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "No index found at %s; run 'ragqa index --url ...' first.\n", paths.Vectors)
		default:
			logging.LogEvent("[SERVER] loaded %d chunks (dimension %d)", index.Len(), index.Dimension())
		}

		p, err := newPipeline(cfg, index, 0)
		if err != nil {
			return err
		}
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return serve(ctx, cmd, p, addr)
	},
}

// serve runs the HTTP boundary for p until ctx is cancelled.
func serve(ctx context.Context, cmd *cobra.Command, p *rag.Pipeline, addr string) error {
	srv, err := server.New(p)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Starting API server on %s\n", addr)
	return srv.Run(ctx, addr)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
