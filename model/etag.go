package model

import (
	"context"
	"fmt"
	"net/http"
)

// RemoteETag issues a metadata-only HEAD request for the archive and
// returns its entity tag. Failures are non-fatal to the sync flow: the
// caller treats an error or empty tag as "no update available".
func RemoteETag(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build version check request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("version check failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version check returned status %d", resp.StatusCode)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", fmt.Errorf("remote did not report an entity tag")
	}
	return etag, nil
}
