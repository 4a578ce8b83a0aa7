package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// metadataFile is the side-car record written next to the model files
// after a successful sync. It round-trips the last-synced fingerprint.
const metadataFile = "metadata.json"

// Metadata is the persisted model store record.
type Metadata struct {
	ETag string `json:"etag"`
}

// Decision is the outcome of the store freshness check.
type Decision int

const (
	// UpToDate means the local store matches the remote fingerprint.
	UpToDate Decision = iota
	// RefreshSilent means the store is missing or empty; download without
	// asking.
	RefreshSilent
	// RefreshConfirm means a local store exists but its fingerprint
	// differs or is unknown; ask before clobbering a working copy.
	RefreshConfirm
)

func (d Decision) String() string {
	switch d {
	case UpToDate:
		return "up-to-date"
	case RefreshSilent:
		return "needs-refresh-silent"
	case RefreshConfirm:
		return "needs-refresh-confirm"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Present reports whether dir exists, is a directory, and is non-empty.
func Present(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// LocalETag returns the fingerprint recorded in the store's metadata file,
// or empty if the record is missing or unreadable.
func LocalETag(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile)) // #nosec G304 - dir is the configured model directory
	if err != nil {
		return ""
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	return meta.ETag
}

// SaveETag persists the fingerprint to the store's metadata file.
func SaveETag(dir, etag string) error {
	data, err := json.Marshal(Metadata{ETag: etag})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Decide implements the store freshness policy. Callers must only invoke
// it when the remote fingerprint is known; an unreachable remote means
// "skip update, keep local state" and never reaches this function.
func Decide(present bool, localETag, remoteETag string) Decision {
	if !present {
		return RefreshSilent
	}
	if localETag == remoteETag {
		return UpToDate
	}
	return RefreshConfirm
}
