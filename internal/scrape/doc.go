// Package scrape turns one raw thread-page document into typed post
// records.
//
// The package contains two components:
//   - Sanitizer: rewrites a markup fragment into a safe, self-contained
//     form (no script/style content, no lazy-loading indirection, no
//     relative references)
//   - Extractor: splits a document into per-post fragments and pulls
//     structured fields out of each one with tolerant pattern matching
//
// Extraction is deliberately best-effort, not a validating parse. Forum
// templates drift across skins and software updates, so every field
// matcher is independent: a pattern that finds nothing yields an absent
// field (or the anonymous author sentinel), never an error. When no post
// boundary is recognized at all, the whole document becomes a single
// record. Rendering consumers get degraded output on template changes
// instead of no output.
package scrape
