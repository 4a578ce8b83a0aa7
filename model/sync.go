package model

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
)

// SyncOptions controls a model store synchronization run.
type SyncOptions struct {
	// URL is the remote archive location.
	URL string
	// Dir is the local model store directory.
	Dir string
	// Client is used for the version check and the download. Nil means
	// http.DefaultClient.
	Client *http.Client
	// Online reports whether outbound network access exists. Nil means
	// assume online.
	Online func() bool
	// Confirm asks the user before replacing an existing store. Nil means
	// never replace a working copy without a prompt handler.
	Confirm func(message string) bool
}

// Sync brings the local model store in line with the remote archive.
//
// Offline or version-check failures degrade to using local state; only a
// failed download or extraction is returned as an error. A declined
// confirmation leaves the stale store and its metadata untouched.
func Sync(ctx context.Context, opts SyncOptions) error {
	if opts.Online != nil && !opts.Online() {
		log.Printf("[Sync] No internet connection available, skipping version check")
		return nil
	}

	remoteETag, err := RemoteETag(ctx, opts.Client, opts.URL)
	if err != nil {
		log.Printf("[Sync] Version check unavailable, using local model state: %v", err)
		return nil
	}

	decision := Decide(Present(opts.Dir), LocalETag(opts.Dir), remoteETag)
	switch decision {
	case UpToDate:
		log.Printf("[Sync] Model directory %s is up-to-date", opts.Dir)
		return nil
	case RefreshConfirm:
		if opts.Confirm == nil || !opts.Confirm("A new version of the model is available, would you like to download it?") {
			log.Printf("[Sync] Keeping existing model in %s", opts.Dir)
			return nil
		}
	case RefreshSilent:
		// Nothing local worth protecting; proceed straight to download.
	}

	if _, err := os.Stat(opts.Dir); err == nil {
		log.Printf("[Sync] Removing existing model folder %s", opts.Dir)
		if err := os.RemoveAll(opts.Dir); err != nil {
			return fmt.Errorf("failed to remove existing model folder: %w", err)
		}
	}

	log.Printf("[Sync] Fetching model into %s", opts.Dir)
	fetcher := &Fetcher{Client: opts.Client}
	if err := fetcher.Fetch(ctx, opts.URL, opts.Dir); err != nil {
		return fmt.Errorf("model fetch failed: %w", err)
	}

	if err := SaveETag(opts.Dir, remoteETag); err != nil {
		return fmt.Errorf("model downloaded but metadata could not be saved: %w", err)
	}
	log.Printf("[Sync] Model store updated to %s", remoteETag)
	return nil
}
