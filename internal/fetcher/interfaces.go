package fetcher

import "context"

// Fetcher downloads the media behind a URL into a directory and returns the
// produced file paths in the order reported.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) ([]string, error)
}
