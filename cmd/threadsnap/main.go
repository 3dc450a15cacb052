// Package main provides the entry point for the threadsnap CLI.
//
// threadsnap reads and snapshots discussion threads from Discuz-family
// forums. It fetches thread pages over HTTP, extracts the posts, and
// renders them as terminal text, JSON, or Markdown.
//
// Usage:
//
//	threadsnap read <thread-id> [page]
//	threadsnap save <thread-id>...
//	threadsnap export <thread-id>
//
// See --help for all available options.
package main

// main is the entry point for threadsnap.
func main() {
	Execute()
}
