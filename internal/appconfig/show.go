package appconfig

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		fallback := Default()
		cfg = &fallback
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:              %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Log File:           %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Request Timeout:    %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Chunk Size:         %d chars, overlap: %d chars\n", cfg.Chunking.Size, cfg.Chunking.Overlap)
	fmt.Fprintf(out, "  Index Vectors:      %s\n", cfg.Index.VectorPath)
	fmt.Fprintf(out, "  Index Metadata:     %s\n", cfg.Index.MetadataPath)
	fmt.Fprintf(out, "  Top K:              %d\n", cfg.Index.TopK)
	fmt.Fprintf(out, "  Embedder:           %s\n", describeBackend(cfg.Embedder.Type, cfg.Embedder.Model, cfg.Embedder.URL))
	if cfg.Embedder.Type == "hashing" {
		fmt.Fprintf(out, "  Embedder Dimension: %d\n", cfg.Embedder.Dimension)
	}
	if cfg.Embedder.APIKeyEnv != "" {
		fmt.Fprintf(out, "  Embedder API Key:   $%s (%s)\n", cfg.Embedder.APIKeyEnv, keyState(cfg.Embedder.APIKeyEnv))
	}
	fmt.Fprintf(out, "  Generator:          %s\n", describeBackend(cfg.Generator.Type, cfg.Generator.Model, cfg.Generator.URL))
	if cfg.Generator.APIKeyEnv != "" {
		fmt.Fprintf(out, "  Generator API Key:  $%s (%s)\n", cfg.Generator.APIKeyEnv, keyState(cfg.Generator.APIKeyEnv))
	}
	fmt.Fprintf(out, "  Crawl Max Pages:    %d\n", cfg.Crawler.MaxPages)
	fmt.Fprintf(out, "  Crawl Timeout:      %s\n", cfg.CrawlTimeout())
	fmt.Fprintf(out, "  Server Address:     %s\n", cfg.Server.Addr)
}

// MarshalYAML renders the configuration as YAML. API keys are never part of
// Config, so the output is safe to share.
func MarshalYAML(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config yaml: %w", err)
	}
	return data, nil
}

func describeBackend(kind, model, url string) string {
	parts := []string{kind}
	if strings.TrimSpace(model) != "" {
		parts = append(parts, "model="+model)
	}
	if strings.TrimSpace(url) != "" {
		parts = append(parts, "url="+url)
	}
	return strings.Join(parts, " ")
}

func keyState(env string) string {
	if strings.TrimSpace(os.Getenv(env)) == "" {
		return "not set"
	}
	return "set"
}
