package client

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// metaCharsetRegex captures the charset declared in a meta tag, in
// either the HTML5 form or the legacy http-equiv content attribute.
var metaCharsetRegex = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([A-Za-z0-9][A-Za-z0-9._-]*)`)

// sniffWindow is how many leading bytes are searched for a meta charset
// declaration.
const sniffWindow = 1024

// decodeBody transcodes body to UTF-8. A configured charset wins over
// the document's own meta declaration. Unknown encoding names and
// transcoding failures leave the body unchanged.
func (c *Client) decodeBody(body []byte) []byte {
	name := c.charset
	if name == "" {
		name = sniffCharset(body)
	}
	if name == "" || isUTF8(name) {
		return body
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return body
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}

// sniffCharset returns the charset declared in the document head, or
// the empty string.
func sniffCharset(body []byte) string {
	view := body
	if len(view) > sniffWindow {
		view = view[:sniffWindow]
	}

	m := metaCharsetRegex.FindSubmatch(view)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// isUTF8 reports whether name is one of the UTF-8 spellings.
func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}
