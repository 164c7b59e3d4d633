package marketplace

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugDashes = regexp.MustCompile(`[\s-]+`)
	slugExt    = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// Slug normalises a file name the way the marketplace stores it: lower case,
// accents folded, & spelled out, runs of spaces and dashes collapsed. The
// extension is kept.
func Slug(name string) string {
	ext := strings.ToLower(path.Ext(name))
	stem := name
	if slugExt.MatchString(ext) {
		stem = strings.TrimSuffix(name, path.Ext(name))
	} else {
		ext = ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(stem))
	if err != nil {
		folded = strings.ToLower(stem)
	}

	s := strings.ReplaceAll(folded, "&", "and")
	s = slugStrip.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "untitled"
	}
	return s + ext
}
