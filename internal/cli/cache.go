package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/placefinder/internal/cache"
	redisclient "github.com/vietddude/placefinder/internal/infra/redis"
)

var (
	serverAddr string
	redisOnly  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics of a running server",
	Run:   runCacheStats,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [url]",
	Short: "Drop the cached result for a URL from both tiers of a running server",
	Args:  cobra.ExactArgs(1),
	Run:   runCacheInvalidate,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "address of a running placefinder server")
	cacheInvalidateCmd.Flags().BoolVar(&redisOnly, "redis-only", false, "delete the remote entry directly, without a running server (in-process entries are kept)")
	cacheCmd.AddCommand(cacheStatsCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := fetchStats(ctx, serverAddr)
	if err != nil {
		slog.Error("Failed to fetch cache stats", "server", serverAddr, "error", err)
		os.Exit(1)
	}
	printStats(os.Stdout, stats)
}

func fetchStats(ctx context.Context, addr string) (*cache.Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/api/cache/stats", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var stats cache.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &stats, nil
}

func printStats(w io.Writer, s *cache.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(tw, "REQUESTS\t%d\n", s.TotalRequests)
	_, _ = fmt.Fprintf(tw, "HITS\t%d (%.1f%%)\n", s.Hits, s.HitRate*100)
	_, _ = fmt.Fprintf(tw, "MISSES\t%d\n", s.Misses)
	_, _ = fmt.Fprintf(tw, "L1 HITS\t%d (%.1f%%)\n", s.L1Hits, s.L1HitRate*100)
	_, _ = fmt.Fprintf(tw, "L2 HITS\t%d (%.1f%%)\n", s.L2Hits, s.L2HitRate*100)
	_, _ = fmt.Fprintf(tw, "L1 ENTRIES\t%d\n", s.L1Entries)
	_, _ = fmt.Fprintf(tw, "REMOTE\t%t\n", s.RemoteEnabled)
	_ = tw.Flush()
}

func runCacheInvalidate(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if redisOnly {
		key, err := invalidateRedis(ctx, args[0])
		if err != nil {
			slog.Error("Failed to invalidate cache entry", "url", args[0], "error", err)
			os.Exit(1)
		}
		fmt.Printf("Invalidated %s\n", key)
		return
	}

	canonical, err := invalidateRemote(ctx, serverAddr, args[0])
	if err != nil {
		slog.Error("Failed to invalidate cache entry", "server", serverAddr, "url", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("Invalidated %s\n", canonical)
}

// invalidateRemote asks a running server to drop url from both cache tiers
// and returns the canonical URL it invalidated.
func invalidateRemote(ctx context.Context, addr, rawURL string) (string, error) {
	endpoint := strings.TrimRight(addr, "/") + "/api/cache?" + url.Values{"url": {rawURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		CanonicalURL string `json:"canonical_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.CanonicalURL, nil
}

// invalidateRedis deletes the remote entry for rawURL straight from Redis.
func invalidateRedis(ctx context.Context, rawURL string) (string, error) {
	cfg := setup()
	if !cfg.Redis.Enabled() {
		return "", errors.New("no remote cache configured")
	}

	key, err := cache.Key(rawURL)
	if err != nil {
		return "", err
	}

	store, err := redisclient.NewStore(cfg.Redis)
	if err != nil {
		return "", fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.Delete(ctx, key); err != nil {
		return "", err
	}
	return key, nil
}
