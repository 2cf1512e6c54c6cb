package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects how a run gets its test data.
type Mode string

const (
	// ModeAuto restores a recent snapshot when one exists and seeds
	// dynamically otherwise.
	ModeAuto Mode = "AUTO"

	// ModeDynamic always seeds fixtures through the API.
	ModeDynamic Mode = "DYNAMIC"

	// ModeSnapshot always restores a snapshot and fails without one.
	ModeSnapshot Mode = "SNAPSHOT"
)

// ParseMode parses a mode case-insensitively. An empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeDynamic:
		return ModeDynamic, nil
	case ModeSnapshot:
		return ModeSnapshot, nil
	default:
		return "", fmt.Errorf("unknown data mode %q (valid: AUTO, DYNAMIC, SNAPSHOT)", s)
	}
}

// Source finds the newest restorable snapshot. It returns
// ErrSnapshotNotFound when there is none.
type Source interface {
	Latest(ctx context.Context) (*Info, error)
}

// Resolution is the outcome of ResolveMode.
type Resolution struct {
	// Requested is the configured mode.
	Requested Mode

	// Effective is ModeDynamic or ModeSnapshot.
	Effective Mode

	// Snapshot is set when Effective is ModeSnapshot.
	Snapshot *Info

	// Reason explains the choice for logs.
	Reason string
}

// UseSnapshot reports whether the run should restore Snapshot.
func (r Resolution) UseSnapshot() bool {
	return r.Effective == ModeSnapshot
}

// ResolveMode decides between seeding and restoring.
//
//   - DYNAMIC never consults the source.
//   - SNAPSHOT uses the newest snapshot regardless of age and fails with
//     ErrNoUsableSnapshot if there is none.
//   - AUTO uses the newest snapshot if it is younger than maxAge, otherwise
//     falls back to DYNAMIC. Source errors other than "not found" are
//     returned.
func ResolveMode(ctx context.Context, mode Mode, src Source, maxAge time.Duration) (Resolution, error) {
	res := Resolution{Requested: mode}

	switch mode {
	case ModeDynamic:
		res.Effective = ModeDynamic
		res.Reason = "dynamic mode requested"
		return res, nil

	case ModeSnapshot, ModeAuto:
	default:
		return res, fmt.Errorf("unknown data mode %q", mode)
	}

	latest, err := src.Latest(ctx)
	if err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return res, fmt.Errorf("failed to look up snapshots: %w", err)
	}

	if mode == ModeSnapshot {
		if latest == nil {
			return res, ErrNoUsableSnapshot
		}
		res.Effective = ModeSnapshot
		res.Snapshot = latest
		res.Reason = "snapshot mode requested"
		return res, nil
	}

	res.Effective = ModeDynamic
	switch {
	case latest == nil:
		res.Reason = "no snapshot available"
	case maxAge > 0 && latest.Age(time.Now()) > maxAge:
		res.Reason = fmt.Sprintf("newest snapshot %s is older than %s", latest.Name, maxAge)
	default:
		res.Effective = ModeSnapshot
		res.Snapshot = latest
		res.Reason = fmt.Sprintf("snapshot %s is recent", latest.Name)
	}
	return res, nil
}
