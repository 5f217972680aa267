package ragqa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/ragqa/internal/chunker"
	"github.com/mwiater/ragqa/internal/crawler"
	"github.com/mwiater/ragqa/internal/embedding"
	"github.com/mwiater/ragqa/internal/rag"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

const demoQuery = "What is this website about?"

var (
	indexURL      string
	indexMaxPages int
	indexServe    bool
)

// indexCmd crawls a website and builds the persisted vector index from it.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Crawl a website and build the vector index",
	Long: `Crawl a website breadth-first, chunk the page text, embed the chunks and
save the index artifacts. Without --serve a demonstration question is asked
against the fresh index; with --serve the HTTP API starts on it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		if indexURL == "" {
			return errors.New("--url is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		maxPages := cfg.Crawler.MaxPages
		if cmd.Flags().Changed("max-pages") {
			maxPages = indexMaxPages
		}
		c, err := crawler.New(indexURL, crawler.Options{
			MaxPages:          maxPages,
			Timeout:           cfg.CrawlTimeout(),
			RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
			UserAgent:         cfg.Crawler.UserAgent,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		info := color.New(color.FgCyan)
		info.Fprintf(out, "Crawling %s (max %d pages)\n", indexURL, maxPages)
		pages, err := c.Crawl(ctx)
		if err != nil {
			return fmt.Errorf("crawl: %w", err)
		}
		if len(pages) == 0 {
			return errors.New("no content crawled")
		}

		ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
		if err != nil {
			return err
		}
		embedder, err := embedding.New(*cfg)
		if err != nil {
			return fmt.Errorf("embedder: %w", err)
		}

		paths := indexPaths(cfg)
		index := vectorindex.New(paths)
		stats, err := rag.BuildIndex(ctx, out, pages, ch, index, embedder, paths)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(out, "Indexed %d chunks from %d pages in %s\n", stats.Chunks, stats.Pages, stats.Elapsed.Round(time.Millisecond))

		p, err := newPipeline(cfg, index, 0)
		if err != nil {
			return err
		}
		if indexServe {
			return serve(ctx, cmd, p, cfg.Server.Addr)
		}
		return runDemo(ctx, cmd, p)
	},
}

// runDemo asks one fixed question against the fresh index.
func runDemo(ctx context.Context, cmd *cobra.Command, p *rag.Pipeline) error {
	out := cmd.OutOrStdout()
	resp, err := p.Ask(ctx, demoQuery)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	color.New(color.Bold).Fprintf(out, "Example Query: %s\n", demoQuery)
	fmt.Fprintf(out, "Answer: %s\n", resp.Answer)
	return nil
}

func init() {
	indexCmd.Flags().StringVar(&indexURL, "url", "", "website URL to index")
	indexCmd.Flags().IntVar(&indexMaxPages, "max-pages", 5, "maximum pages to crawl (overrides crawler.maxPages)")
	indexCmd.Flags().BoolVar(&indexServe, "serve", false, "start the API server after indexing")
	rootCmd.AddCommand(indexCmd)
}
