package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
)

// Default timeouts applied when Options leaves them zero.
const (
	DefaultProbeTimeout    = 30 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
)

// Options configures a Client.
type Options struct {
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration
	// RatePerSecond limits requests across the client. Zero means unlimited.
	RatePerSecond float64
}

// Client is a small HTTP client for feed servers.
type Client struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	probeTimeout    time.Duration
	downloadTimeout time.Duration
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient:      &http.Client{},
		limiter:         rate.NewLimiter(rate.Inf, 1),
		probeTimeout:    opts.ProbeTimeout,
		downloadTimeout: opts.DownloadTimeout,
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = DefaultProbeTimeout
	}
	if c.downloadTimeout <= 0 {
		c.downloadTimeout = DefaultDownloadTimeout
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c
}

// Probe sends a HEAD request to url and compares its Last-Modified header with local.
// It returns nil, nil when url is empty or the server sends no usable Last-Modified.
// Transport errors and non-2xx responses are returned as *ProbeError.
func (c *Client) Probe(ctx context.Context, url string, local time.Time) (*Freshness, error) {
	if url == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ProbeError{URL: url, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, &ProbeError{URL: url, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProbeError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProbeError{URL: url, StatusCode: resp.StatusCode}
	}
	remote, ok := ParseLastModified(resp.Header.Get("Last-Modified"))
	if !ok {
		internal.Logger().Debug("no Last-Modified in probe response", "url", url)
		return nil, nil
	}
	return &Freshness{RemoteNewer: local.Before(remote), Remote: remote, Local: local}, nil
}

var lastModifiedLayouts = []string{
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	time.RFC3339,
}

// ParseLastModified parses a Last-Modified value and keeps its wall clock in the local zone,
// dropping the offset, so it compares like a file modification time.
func ParseLastModified(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range lastModifiedLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		y, mo, d := t.Date()
		h, mi, s := t.Clock()
		return time.Date(y, mo, d, h, mi, s, 0, time.Local), true
	}
	return time.Time{}, false
}

// Download fetches url into destDir/name and returns the written path.
// A partial file is removed when the transfer fails.
func (c *Client) Download(ctx context.Context, url, destDir, name string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	target := filepath.Join(destDir, name)
	if resp.ContentLength > 0 {
		internal.Logger().Info("downloading", "url", url, "to", target, "kB", resp.ContentLength/1024)
	} else {
		internal.Logger().Info("downloading", "url", url, "to", target)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	internal.Logger().Debug("download complete", "url", url, "bytes", n)
	return target, nil
}
