package scrape

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yomite/threadsnap/internal/model"
)

// boundaryMarkers are the post-container openings recognized across
// forum skins, ordered from the modern templates to the legacy table
// layout. A document is segmented on the first marker kind it contains;
// later kinds are ignored so mixed matches cannot interleave.
var boundaryMarkers = []string{
	`<div id="post_`,
	`<div class="postbox`,
	`<table id="pid`,
}

// nextPageMarkers signal that the thread continues on a further page.
// They are searched document-wide, not per fragment.
var nextPageMarkers = []string{
	"下一页",
	"下一頁",
	`rel="next"`,
	`class="nxt"`,
}

// postIDRegex captures the numeric post identifier from container
// element ids such as id="pid12345" or id="post_12345".
var postIDRegex = regexp.MustCompile(`(?i)\bid="(?:pid|post_)(\d+)"`)

// floorRegexes capture the ordinal of a post within its thread. They
// are tried in order against the text of a fragment; the first match
// wins. Both simplified and traditional floor suffixes are recognized.
var floorRegexes = []*regexp.Regexp{
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(\d+)楼`),
	regexp.MustCompile(`(\d+)樓`),
}

// authorAnchorRegex matches a profile link, identified by a uid query
// parameter in its href, and captures the anchor text. Anchors whose
// content is further markup (avatar images) do not match.
var authorAnchorRegex = regexp.MustCompile(`(?i)<a\b[^>]*href="[^"]*(?:\?|&|&amp;)uid=\d+[^"]*"[^>]*>([^<]+)</a>`)

// timeClassRegex captures the inner text of the first element whose
// class mentions time or date.
var timeClassRegex = regexp.MustCompile(`(?is)<[a-z][a-z0-9]*\b[^>]*class="[^"]*(?:time|date)[^"]*"[^>]*>(.*?)</`)

// timeTitleRegex captures the title attribute some skins put the full
// timestamp in when the visible text is relative ("3 days ago").
var timeTitleRegex = regexp.MustCompile(`(?i)<(?:span|em)\b[^>]*\btitle="([^"]+)"`)

// titleRegex captures the document title.
var titleRegex = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title\s*>`)

// tagRegex matches any markup tag, for stripping.
var tagRegex = regexp.MustCompile(`(?s)<[^>]*>`)

// Extractor turns raw thread-page documents into ThreadPage values.
type Extractor struct {
	sanitizer *Sanitizer
}

// NewExtractor returns an Extractor whose post content is sanitized
// against origin.
func NewExtractor(origin string) *Extractor {
	return &Extractor{
		sanitizer: NewSanitizer(origin),
	}
}

// Extract parses doc into a ThreadPage for key. It always returns a
// page: fields that cannot be located are left at their zero value, the
// author falls back to the anonymous sentinel, and a document with no
// recognizable post boundary yields a single post holding the whole
// document.
func (e *Extractor) Extract(key model.PageKey, doc string) *model.ThreadPage {
	fragments := splitFragments(doc)

	posts := make([]model.Post, 0, len(fragments))
	for _, fragment := range fragments {
		posts = append(posts, e.extractPost(fragment))
	}

	return &model.ThreadPage{
		ThreadID: key.ThreadID,
		Page:     key.Page,
		Title:    extractTitle(doc),
		Posts:    posts,
		HasNext:  hasNextPage(doc),
	}
}

// splitFragments cuts doc into per-post fragments at the first boundary
// marker kind present. Each fragment is re-prefixed with the marker so
// container attributes stay visible to the field matchers. Text before
// the first boundary is dropped. Without any marker the whole document
// is one fragment.
func splitFragments(doc string) []string {
	for _, marker := range boundaryMarkers {
		if !strings.Contains(doc, marker) {
			continue
		}

		pieces := strings.Split(doc, marker)
		fragments := make([]string, 0, len(pieces)-1)
		for _, piece := range pieces[1:] {
			fragments = append(fragments, marker+piece)
		}
		return fragments
	}
	return []string{doc}
}

// extractPost pulls the structured fields out of one post fragment.
func (e *Extractor) extractPost(fragment string) model.Post {
	post := model.Post{
		Author: model.AnonymousAuthor,
	}

	if m := postIDRegex.FindStringSubmatch(fragment); m != nil {
		post.ID = m[1]
	}
	post.Floor = extractFloor(fragment)
	if author := extractAuthor(fragment); author != "" {
		post.Author = author
	}
	post.PostedAt = extractPostedAt(fragment)
	post.Content = e.sanitizer.Sanitize(fragment)
	return post
}

// extractFloor finds the post ordinal in the fragment text. Matching
// runs on tag-stripped, entity-decoded text so attribute values and
// numeric character references cannot produce phantom ordinals.
func extractFloor(fragment string) int {
	text := html.UnescapeString(stripTags(fragment))
	for _, re := range floorRegexes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		floor, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return floor
	}
	return 0
}

// extractAuthor returns the text of the first profile anchor with
// non-blank content, or the empty string when none is found.
func extractAuthor(fragment string) string {
	for _, m := range authorAnchorRegex.FindAllStringSubmatch(fragment, -1) {
		name := strings.TrimSpace(html.UnescapeString(m[1]))
		if name != "" {
			return name
		}
	}
	return ""
}

// extractPostedAt returns the post timestamp as written in the markup.
// The inner text of a time/date-classed element is preferred; a title
// attribute on a span or em is the fallback. The value is not parsed
// into a time.Time, source forums mix too many formats for that.
func extractPostedAt(fragment string) string {
	if m := timeClassRegex.FindStringSubmatch(fragment); m != nil {
		text := strings.TrimSpace(html.UnescapeString(stripTags(m[1])))
		if text != "" {
			return text
		}
	}
	if m := timeTitleRegex.FindStringSubmatch(fragment); m != nil {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return ""
}

// extractTitle returns the trimmed document title, or the empty string.
func extractTitle(doc string) string {
	m := titleRegex.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(stripTags(m[1])))
}

// hasNextPage reports whether doc carries any continuation marker.
func hasNextPage(doc string) bool {
	for _, marker := range nextPageMarkers {
		if strings.Contains(doc, marker) {
			return true
		}
	}
	return false
}

// stripTags removes all markup tags from s, keeping text content.
func stripTags(s string) string {
	return tagRegex.ReplaceAllString(s, "")
}
