// Package render turns thread pages into reader-facing output.
//
// Three formats are provided: plain text for the terminal
// (SimpleWriter), JSON for tool integration (JSONWriter), and Markdown
// for sharing and archiving (MarkdownWriter). All implement the Writer
// interface, and MultiWriter fans one page out to several formats at
// once.
//
// Renderers receive sanitized markup and flatten it to text; they never
// fetch or re-sanitize.
package render
