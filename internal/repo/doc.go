// Package repo is the read path for thread pages. It composes the
// fetch client, the extractor, the TTL cache, and the retry policy
// behind two operations: LoadPage for one page, LoadThread for a
// sequential walk across a thread.
//
// Concurrent loads of the same page collapse into a single fetch, and
// every waiting caller receives the same page instance or the same
// error. The shared computation runs detached from any one caller's
// context, so a canceled joiner gives up waiting without killing the
// work for the others.
package repo
