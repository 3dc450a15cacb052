// Package model defines the core data structures shared across threadsnap.
//
// This package contains the following main types:
//   - PageKey: Identity of one page of one thread, used for caching and
//     request coalescing
//   - RawDocument: Decoded markup of a fetched page, pre-extraction
//   - Post: One extracted forum post with sanitized content
//   - ThreadPage: The extraction result for one page, the unit cached and
//     returned to callers
//
// The types live in their own package because the transport, extraction,
// repository, rendering, and archive packages all consume them;
// centralizing them prevents import cycles.
//
// Post and ThreadPage are designed to be serializable to JSON for report
// output and archive storage.
package model
