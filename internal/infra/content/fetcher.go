// Package content fetches a post page and reduces it to a ContentSnapshot
// using its OpenGraph and meta tags.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/retry"
)

// ErrNotFound is returned when the post does not exist or is not public.
var ErrNotFound = errors.New("content not found")

// Config holds fetcher settings.
type Config struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

const (
	defaultTimeout      = 10 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (compatible; placefinder/1.0; +https://github.com/vietddude/placefinder)"
	defaultMaxBodyBytes = 2 << 20
	maxImages           = 8
)

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{
		client:       &http.Client{Timeout: cfg.Timeout},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads the page at url and extracts its snapshot. Transient HTTP
// failures are tagged for the retry executor.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.ContentSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Wrap(retry.KindUnavailable, fmt.Errorf("failed to make HTTP request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: status code %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.Wrap(retry.KindRateLimited, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, retry.Wrap(retry.KindUnavailable, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Wrap(retry.KindFatal, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return Extract(doc, url), nil
}

// Extract builds a snapshot from a parsed page.
func Extract(doc *goquery.Document, sourceURL string) *domain.ContentSnapshot {
	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		metaContent(doc, `meta[name="twitter:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	description := firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="description"]`),
		metaContent(doc, `meta[name="twitter:description"]`),
	)

	return &domain.ContentSnapshot{
		SourceURL:   sourceURL,
		Title:       title,
		Description: description,
		ImageURLs:   imageURLs(doc),
		Hashtags:    hashtags(title, description, doc),
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func imageURLs(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var out []string
	doc.Find(`meta[property="og:image"], meta[property="og:image:url"], meta[name="twitter:image"]`).Each(func(i int, s *goquery.Selection) {
		v, ok := s.Attr("content")
		v = strings.TrimSpace(v)
		if !ok || v == "" || len(out) >= maxImages {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	})
	return out
}

func hashtags(title, description string, doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, "#"+tag)
	}

	for _, text := range []string{title, description} {
		for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	doc.Find(`meta[property="article:tag"], meta[property="video:tag"]`).Each(func(i int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			if v = strings.TrimPrefix(strings.TrimSpace(v), "#"); v != "" && !strings.ContainsAny(v, " \t") {
				add(v)
			}
		}
	})
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
