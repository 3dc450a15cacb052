// Package cache provides the in-process TTL cache for extracted thread
// pages.
//
// The cache is a bounded-staleness memoizer, not a bounded-memory cache:
// it has no size limit and no eviction policy beyond age. Each key holds
// at most one entry, overwritten whole on every Put. Expiry is lazy: an
// entry older than the caller's maxAge is reported as a miss but never
// proactively removed, since the refetch that follows overwrites it.
// Cache lifetime is bounded to the running process.
package cache
