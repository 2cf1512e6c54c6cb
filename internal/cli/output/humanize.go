package output

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Bytes formats a size with binary units, e.g. "1.2 MiB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Age formats how long ago t was relative to now, e.g. "3 hours ago".
func Age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Timestamp formats t in local time for tables.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
