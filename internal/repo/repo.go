package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yomite/threadsnap/internal/cache"
	"github.com/yomite/threadsnap/internal/client"
	"github.com/yomite/threadsnap/internal/model"
	"github.com/yomite/threadsnap/internal/retry"
	"github.com/yomite/threadsnap/internal/scrape"
)

const (
	// defaultCacheTTL is how long a cached page satisfies loads.
	defaultCacheTTL = 60 * time.Second

	// defaultPageDelay is the politeness pause between pages of one
	// thread walk.
	defaultPageDelay = 1 * time.Second

	// defaultMaxPages bounds one thread walk.
	defaultMaxPages = 50
)

// Fetcher fetches one raw thread-page document. *client.Client is the
// production implementation.
type Fetcher interface {
	// FetchThreadPage performs one fetch for the page identified by
	// key. referer may be empty.
	FetchThreadPage(ctx context.Context, key model.PageKey, referer string) (*model.RawDocument, error)

	// ThreadURL returns the full URL of one thread page.
	ThreadURL(key model.PageKey) string
}

// Repository loads thread pages with caching, retries, and collapsing
// of concurrent loads.
type Repository struct {
	fetcher   Fetcher
	extractor *scrape.Extractor
	cache     *cache.PageCache
	retry     retry.Config
	cacheTTL  time.Duration
	pageDelay time.Duration
	maxPages  int
	logger    *slog.Logger

	// group deduplicates in-flight loads per page key. Keys are
	// released as soon as a flight settles, so a failed load never
	// blocks a later one.
	group singleflight.Group
}

// Option configures a Repository.
type Option func(*Repository)

// WithCacheTTL sets how long cached pages satisfy loads. Zero disables
// cache hits.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		r.cacheTTL = ttl
	}
}

// WithRetryConfig sets the retry policy for fetches.
func WithRetryConfig(cfg retry.Config) Option {
	return func(r *Repository) {
		r.retry = cfg
	}
}

// WithPageDelay sets the pause between pages of one thread walk.
func WithPageDelay(d time.Duration) Option {
	return func(r *Repository) {
		r.pageDelay = d
	}
}

// WithMaxPages sets how many pages one thread walk may load. Zero or
// negative means no limit.
func WithMaxPages(n int) Option {
	return func(r *Repository) {
		r.maxPages = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a Repository around the given fetcher and
// extractor.
func NewRepository(fetcher Fetcher, extractor *scrape.Extractor, opts ...Option) *Repository {
	r := &Repository{
		fetcher:   fetcher,
		extractor: extractor,
		cache:     cache.NewPageCache(),
		retry:     retry.DefaultConfig(),
		cacheTTL:  defaultCacheTTL,
		pageDelay: defaultPageDelay,
		maxPages:  defaultMaxPages,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// LoadPage returns the thread page identified by key. A fresh cached
// page is returned as-is. Otherwise the page is fetched, extracted, and
// cached; concurrent loads of the same key share one fetch and all
// receive the same page instance or the same error. A canceled caller
// gets its context error while the shared fetch keeps running for the
// remaining callers.
func (r *Repository) LoadPage(ctx context.Context, key model.PageKey) (*model.ThreadPage, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidRequest, err)
	}

	if page, ok := r.cache.Get(key, r.cacheTTL); ok {
		r.logger.Debug("cache hit", "page", key.String())
		return page, nil
	}

	// The computation must outlive any single joiner, so it runs on a
	// context detached from this caller's cancellation.
	computeCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key.String(), func() (any, error) {
		return r.loadAndStore(computeCtx, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.ThreadPage), nil
	}
}

// LoadThread walks a thread starting at page first, following
// continuation markers until the last page, the page limit, or an
// error. Pages loaded before a failure are returned alongside the
// error.
func (r *Repository) LoadThread(ctx context.Context, threadID string, first int) ([]*model.ThreadPage, error) {
	key, err := model.NewPageKey(threadID, first)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidRequest, err)
	}

	pages := make([]*model.ThreadPage, 0)
	for {
		page, err := r.LoadPage(ctx, key)
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)

		if !page.HasNext {
			return pages, nil
		}
		if r.maxPages > 0 && len(pages) >= r.maxPages {
			r.logger.Warn("page limit reached",
				"thread", threadID,
				"pages", len(pages),
			)
			return pages, nil
		}

		key = key.Next()

		// Politeness delay before the next page.
		if r.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return pages, ctx.Err()
			case <-time.After(r.pageDelay):
			}
		}
	}
}

// loadAndStore fetches one page, extracts it, and caches the result.
func (r *Repository) loadAndStore(ctx context.Context, key model.PageKey) (*model.ThreadPage, error) {
	doc, err := r.fetchWithRetry(ctx, key)
	if err != nil {
		return nil, err
	}

	page := r.extractor.Extract(key, doc.Body)
	r.cache.Put(key, page)

	r.logger.Debug("page loaded",
		"page", key.String(),
		"posts", page.PostCount(),
		"has_next", page.HasNext,
	)
	return page, nil
}

// fetchWithRetry runs one fetch under the retry policy. Pages after the
// first carry the previous page's URL as referer. Failures the client
// classifies as non-retryable stop the attempts immediately; the last
// attempt's error is returned unchanged.
func (r *Repository) fetchWithRetry(ctx context.Context, key model.PageKey) (*model.RawDocument, error) {
	referer := ""
	if key.Page > 1 {
		referer = r.fetcher.ThreadURL(key.Prev())
	}

	cfg := r.retry
	cfg.OnRetry = func(err error, next time.Duration) {
		r.logger.Warn("fetch attempt failed",
			"page", key.String(),
			"error", err,
			"retry_in", next,
		)
	}

	var doc *model.RawDocument
	op := func() error {
		var err error
		doc, err = r.fetcher.FetchThreadPage(ctx, key, referer)
		return err
	}
	permanent := func(err error) bool {
		return !client.IsRetryable(err)
	}

	if err := retry.Do(ctx, cfg, op, permanent); err != nil {
		return nil, err
	}
	return doc, nil
}
