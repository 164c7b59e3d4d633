package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"bosko/model"
)

var (
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
	multipleSpaces = regexp.MustCompile(`\s+`)
)

const maxNameLength = 150

// SafeName turns a user-supplied file name into a key-safe segment.
func SafeName(name string) string {
	base := strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = unsafeChars.ReplaceAllString(base, "")
	if len(base) > maxNameLength {
		base = base[len(base)-maxNameLength:]
	}
	if base == "" || base == "." {
		base = "file"
	}
	return base
}

// AssetKey returns the storage key for a newly uploaded asset, e.g. beats/1718000000000_beat.mp3.
func AssetKey(t model.AssetType, name string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", t.KeyPrefix(), now.UnixMilli(), SafeName(name))
}
