// internal/crawler/crawler.go

// Package crawler fetches pages of a single website breadth-first and turns
// them into plain-text pages for indexing.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mwiater/ragqa/internal/chunker"
	"github.com/mwiater/ragqa/internal/logging"
)

const (
	defaultMaxPages  = 5
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "ragqa-crawler/1.0"
	maxBodyBytes     = 10 << 20
)

// Options bounds a crawl.
type Options struct {
	// MaxPages caps the number of URLs fetched, including failed fetches.
	MaxPages int
	// Timeout bounds each page fetch.
	Timeout time.Duration
	// RequestsPerSecond throttles fetches; zero means unthrottled.
	RequestsPerSecond float64
	UserAgent         string
	// Client overrides the HTTP client. Timeout still applies per request.
	Client *http.Client
}

// Crawler visits same-host links starting from a base URL.
type Crawler struct {
	base    *url.URL
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
}

// New validates baseURL and returns a crawler rooted at it.
func New(baseURL string, opts Options) (*Crawler, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}
	base.Fragment = ""
	if base.Path == "" {
		base.Path = "/"
	}

	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Crawler{
		base:    base,
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Crawl fetches up to MaxPages URLs breadth-first. Fetch failures are logged
// and skipped; only context cancellation stops the crawl early, in which
// case the pages gathered so far are returned with the context error.
func (c *Crawler) Crawl(ctx context.Context) ([]chunker.Page, error) {
	start := c.base.String()
	frontier := []string{start}
	queued := map[string]bool{start: true}
	attempted := 0
	var pages []chunker.Page

	for len(frontier) > 0 && attempted < c.opts.MaxPages {
		current := frontier[0]
		frontier = frontier[1:]
		attempted++

		if err := c.limiter.Wait(ctx); err != nil {
			return pages, err
		}
		logging.LogEvent("[CRAWL] Crawling: %s", current)

		text, links, err := c.fetch(ctx, current)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pages, ctxErr
			}
			logging.LogEvent("[CRAWL] Failed to crawl %s: %v", current, err)
			continue
		}
		pages = append(pages, chunker.Page{SourceID: current, Text: text})

		for _, link := range links {
			next, ok := c.resolve(current, link)
			if !ok || queued[next] {
				continue
			}
			queued[next] = true
			frontier = append(frontier, next)
		}
	}
	return pages, nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (string, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && !strings.Contains(mediaType, "html") {
			return "", nil, errors.New("skipping non-HTML content type " + mediaType)
		}
	}

	return Extract(io.LimitReader(resp.Body, maxBodyBytes))
}

// resolve turns href into an absolute, fragment-free URL on the base host.
func (c *Crawler) resolve(pageURL, href string) (string, bool) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	next := page.ResolveReference(ref)
	next.Fragment = ""
	next.RawFragment = ""
	if next.Scheme != "http" && next.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(next.Host, c.base.Host) {
		return "", false
	}
	return next.String(), true
}
