package cleanup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const suitePrefix = "suite_"

var invalidIdentifierChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// SuiteIdentifier returns the identifier for entities shared by every test
// of a suite.
func SuiteIdentifier(suiteName string) string {
	return suitePrefix + suiteName
}

// IsSuiteIdentifier reports whether id was built by SuiteIdentifier.
func IsSuiteIdentifier(id string) bool {
	return strings.HasPrefix(id, suitePrefix)
}

// TestIdentifier derives a per-test identifier from the test's title path.
// The result depends only on the path, so every retry of the same test maps
// to the same identifier. A short hash keeps distinct paths distinct after
// sanitizing.
func TestIdentifier(titlePath []string) string {
	full := strings.Join(titlePath, " > ")
	sum := sha256.Sum256([]byte(full))

	name := invalidIdentifierChars.ReplaceAllString(strings.Join(titlePath, "_"), "_")
	name = strings.Trim(strings.ToLower(name), "_")
	if len(name) > 48 {
		name = strings.TrimRight(name[:48], "_")
	}
	if name == "" {
		name = "test"
	}
	return name + "_" + hex.EncodeToString(sum[:4])
}

// SuiteName extracts the suite name from a title path: the second element
// when present, otherwise the first.
func SuiteName(titlePath []string) string {
	switch {
	case len(titlePath) > 1:
		return titlePath[1]
	case len(titlePath) == 1:
		return titlePath[0]
	default:
		return ""
	}
}
