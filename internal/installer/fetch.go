package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher downloads the resource at url into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) error
}

// HTTPFetcher fetches over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch streams the response body of a GET request into w. Non-2xx responses
// are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read %s: %w", url, err)
	}
	return nil
}
