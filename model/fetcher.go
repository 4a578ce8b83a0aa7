package model

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher downloads and unpacks a model archive into the local store. A
// failed fetch leaves whatever partial state resulted; there is no
// automatic rollback, the user retries on the next run.
type Fetcher struct {
	Client *http.Client
}

// Fetch downloads the archive at url and extracts it so that the payload
// files sit directly inside destDir. A single wrapper directory inside the
// archive is collapsed regardless of its name; multiple top-level entries
// all land directly under destDir.
func (f *Fetcher) Fetch(ctx context.Context, url, destDir string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	zipPath := destDir + ".zip"
	if err := f.download(ctx, client, url, zipPath); err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(destDir), ".eclipse-extract-")
	if err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Printf("[Fetcher] Warning: failed to clean up extraction directory: %v", err)
		}
	}()

	log.Printf("[Fetcher] Unzipping %s", zipPath)
	if err := extractZip(zipPath, tempDir); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}

	if err := normalize(tempDir, destDir); err != nil {
		return fmt.Errorf("failed to normalize archive layout: %w", err)
	}

	if err := os.Remove(zipPath); err != nil {
		log.Printf("[Fetcher] Warning: failed to remove archive: %v", err)
	}
	return nil
}

// download streams the archive to zipPath, logging progress at most twice
// per second.
func (f *Fetcher) download(ctx context.Context, client *http.Client, url, zipPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(zipPath) // #nosec G304 - path is derived from the configured model directory
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	log.Printf("[Fetcher] Downloading %s", url)
	progress := &progressWriter{
		total:   resp.ContentLength,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	_, copyErr := io.Copy(io.MultiWriter(out, progress), resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("download interrupted: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finish archive file: %w", closeErr)
	}
	log.Printf("[Fetcher] Downloaded %d bytes", progress.written)
	return nil
}

// progressWriter counts bytes and logs progress, throttled by a rate
// limiter so large downloads don't flood the log.
type progressWriter struct {
	written int64
	total   int64
	limiter *rate.Limiter
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.limiter.Allow() {
		if p.total > 0 {
			log.Printf("[Fetcher] Progress: %d/%d bytes (%.0f%%)", p.written, p.total,
				float64(p.written)/float64(p.total)*100)
		} else {
			log.Printf("[Fetcher] Progress: %d bytes", p.written)
		}
	}
	return len(b), nil
}

// extractZip unpacks the archive into destDir, refusing entries that would
// escape it.
func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		target := filepath.Join(destDir, filepath.Clean(file.Name)) // #nosec G305 - checked below
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes extraction directory: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", target, err)
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", file.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304 - target validated against destDir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	// #nosec G110 - model archives come from the configured trusted bucket
	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to write %s: %w", target, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finish %s: %w", target, closeErr)
	}
	return nil
}

// normalize moves extracted content into destDir so exactly one top-level
// directory holds the payload. A single wrapper directory is collapsed; an
// archive with multiple top-level entries keeps them all directly under
// destDir.
func normalize(tempDir, destDir string) error {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return fmt.Errorf("failed to inspect extracted content: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("archive was empty")
	}

	srcDir := tempDir
	if len(entries) == 1 && entries[0].IsDir() {
		srcDir = filepath.Join(tempDir, entries[0].Name())
		entries, err = os.ReadDir(srcDir)
		if err != nil {
			return fmt.Errorf("failed to inspect wrapper directory: %w", err)
		}
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	for _, entry := range entries {
		from := filepath.Join(srcDir, entry.Name())
		to := filepath.Join(destDir, entry.Name())
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", entry.Name(), err)
		}
	}
	return nil
}
