// Package snapshot bootstraps test data: it decides whether a run seeds its
// own fixtures or restores a MySQL dump, and manages those dumps.
//
// A snapshot is two files in the snapshot directory:
//
//	<name>.sql   the mysqldump output
//	<name>.json  the sidecar describing it (Info)
//
// The catalog indexes sidecars so the newest usable snapshot can be found
// without scanning the directory.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var (
	// ErrSnapshotNotFound is returned when a named snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNoUsableSnapshot is returned by ResolveMode in SNAPSHOT mode when
	// the catalog holds no restorable dump.
	ErrNoUsableSnapshot = errors.New("no usable snapshot")

	// ErrChecksumMismatch is returned when a dump no longer matches the
	// digest recorded in its sidecar.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

	// ErrInvalidName is returned for names that are not safe file names.
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Info describes a snapshot. It is the content of the JSON sidecar.
type Info struct {
	Name      string    `json:"name"`
	Database  string    `json:"database"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	Tables    []string  `json:"tables"`

	// ArchiveKey is the S3 key of the archived dump, if any.
	ArchiveKey string `json:"archive_key,omitempty"`
}

// Age returns how long ago the snapshot was taken.
func (i Info) Age(now time.Time) time.Duration {
	return now.Sub(i.CreatedAt)
}

// Metrics receives snapshot observations. A nil Metrics is allowed.
type Metrics interface {
	ObserveOperation(operation string, d time.Duration, err error)
	RecordSize(bytes int64)
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateName rejects names that could escape the snapshot directory.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DefaultName returns a timestamped snapshot name.
func DefaultName(now time.Time) string {
	return "snapshot-" + now.UTC().Format("20060102-150405")
}

func dumpPath(dir, name string) string {
	return filepath.Join(dir, name+".sql")
}

func sidecarPath(dir, name string) string {
	return filepath.Join(dir, name+".json")
}

// ReadSidecar loads <name>.json from dir.
func ReadSidecar(dir, name string) (*Info, error) {
	data, err := os.ReadFile(sidecarPath(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar %s: %w", name, err)
	}
	return &info, nil
}

// WriteSidecar writes info to <name>.json in dir.
func WriteSidecar(dir string, info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	if err := os.WriteFile(sidecarPath(dir, info.Name), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}
