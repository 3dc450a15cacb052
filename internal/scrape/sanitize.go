package scrape

import (
	"regexp"
	"strings"
)

// scriptBlockRegex matches a whole <script> element including its body.
// Matching is case-insensitive and spans newlines.
var scriptBlockRegex = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)

// styleBlockRegex matches a whole <style> element including its body.
var styleBlockRegex = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)

// lazySrcRegex matches the lazy-loading attributes forum skins use to
// defer image loading. The captured value is the real image location.
var lazySrcRegex = regexp.MustCompile(`(?i)\b(?:data-src|data-original|zoomfile|file)\s*=\s*"([^"]*)"`)

// srcsetRegex matches responsive-image candidate lists. Only the first
// candidate is kept; descriptor tokens (widths, densities) are dropped.
var srcsetRegex = regexp.MustCompile(`(?i)\b(?:data-srcset|srcset)\s*=\s*"([^"]*)"`)

// protoRelativeRefRegex matches src/href values that start with the
// protocol-relative prefix "//".
var protoRelativeRefRegex = regexp.MustCompile(`(?i)\b(src|href)\s*=\s*"//`)

// rootRelativeRefRegex matches src/href values that start with a single
// "/". The first path character is captured so protocol-relative values
// are never re-matched.
var rootRelativeRefRegex = regexp.MustCompile(`(?i)\b(src|href)\s*=\s*"/([^/"][^"]*)"`)

// Sanitizer rewrites markup fragments into a self-contained form that
// renders correctly outside the origin site.
type Sanitizer struct {
	// origin is the scheme plus host prefixed to root-relative
	// references, without a trailing slash.
	origin string
}

// NewSanitizer returns a Sanitizer that resolves root-relative
// references against origin (e.g. "https://forum.example.com").
func NewSanitizer(origin string) *Sanitizer {
	return &Sanitizer{
		origin: strings.TrimRight(origin, "/"),
	}
}

// Sanitize rewrites fragment in three steps, in order:
//
//  1. remove <script> and <style> elements together with their bodies
//  2. promote lazy-loading attributes to plain src, keeping only the
//     first candidate of srcset lists
//  3. absolutize references: protocol-relative values get "https:",
//     root-relative values get the configured origin
//
// Sanitize is a pure function of its input. Already-absolute references
// and unrecognized markup pass through unchanged.
func (s *Sanitizer) Sanitize(fragment string) string {
	out := scriptBlockRegex.ReplaceAllString(fragment, "")
	out = styleBlockRegex.ReplaceAllString(out, "")

	out = lazySrcRegex.ReplaceAllString(out, `src="$1"`)
	out = srcsetRegex.ReplaceAllStringFunc(out, firstSrcsetCandidate)

	out = protoRelativeRefRegex.ReplaceAllString(out, `$1="https://`)
	out = rootRelativeRefRegex.ReplaceAllString(out, `$1="`+s.origin+`/$2"`)
	return out
}

// firstSrcsetCandidate rewrites one srcset attribute to a src attribute
// holding the URL of the first candidate.
func firstSrcsetCandidate(attr string) string {
	m := srcsetRegex.FindStringSubmatch(attr)
	if m == nil {
		return attr
	}

	candidate, _, _ := strings.Cut(m[1], ",")
	candidate = strings.TrimSpace(candidate)
	if i := strings.IndexAny(candidate, " \t"); i >= 0 {
		candidate = candidate[:i]
	}
	return `src="` + candidate + `"`
}
