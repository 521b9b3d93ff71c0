package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-manager/remote"
)

// fetcher downloads feed archives from HTTP URLs or copies them from local paths.
// This is CLI-specific logic and is not part of the core library.
type fetcher struct {
	client *remote.Client
}

func newFetcher(client *remote.Client) *fetcher {
	return &fetcher{client: client}
}

// Download implements gtfsman.Downloader. Anything that is not an http(s) URL is read
// as a local file, with or without a file:// prefix.
func (f *fetcher) Download(ctx context.Context, urlOrPath, destDir, name string) (string, error) {
	if strings.HasPrefix(urlOrPath, "http://") || strings.HasPrefix(urlOrPath, "https://") {
		return f.client.Download(ctx, urlOrPath, destDir, name)
	}
	src := strings.TrimPrefix(urlOrPath, "file://")
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	target := filepath.Join(destDir, name)
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return target, out.Close()
}
