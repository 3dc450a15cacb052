package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/yomite/threadsnap/internal/client"
	"github.com/yomite/threadsnap/internal/model"
	"github.com/yomite/threadsnap/internal/retry"
	"github.com/yomite/threadsnap/internal/scrape"
)

// fakeFetcher is a scripted Fetcher. When started and release are set,
// every fetch announces itself on started and then blocks until release
// is closed.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    int
	referers []string
	handler  func(key model.PageKey) (*model.RawDocument, error)
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeFetcher) FetchThreadPage(ctx context.Context, key model.PageKey, referer string) (*model.RawDocument, error) {
	f.mu.Lock()
	f.calls++
	f.referers = append(f.referers, referer)
	started := f.started
	release := f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return f.handler(key)
}

func (f *fakeFetcher) ThreadURL(key model.PageKey) string {
	return fmt.Sprintf("https://forum.example.com/thread-%s-%d-1.html", key.ThreadID, key.Page)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) refererAt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.referers) {
		return ""
	}
	return f.referers[i]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() retry.Config {
	return retry.Config{
		Attempts:    3,
		MinInterval: time.Millisecond,
		MaxInterval: 2 * time.Millisecond,
	}
}

func singlePageHandler(body string) func(key model.PageKey) (*model.RawDocument, error) {
	return func(key model.PageKey) (*model.RawDocument, error) {
		return &model.RawDocument{Key: key, Body: body}, nil
	}
}

func TestRepositoryLoadPage(t *testing.T) {
	t.Parallel()

	t.Run("fetches extracts and caches a page", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{
			handler: singlePageHandler(`<div id="post_11">hello from the fixture</div><a class="nxt" href="#">2</a>`),
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		page, err := r.LoadPage(context.Background(), key)
		if err != nil {
			t.Fatalf("failed to load page: %v", err)
		}

		if page.ThreadID != "99" || page.Page != 1 {
			t.Errorf("expected page identity 99/1, got %s/%d", page.ThreadID, page.Page)
		}
		if len(page.Posts) != 1 {
			t.Fatalf("expected 1 post, got %d", len(page.Posts))
		}
		if !page.HasNext {
			t.Error("expected continuation marker to be detected")
		}

		again, err := r.LoadPage(context.Background(), key)
		if err != nil {
			t.Fatalf("failed to load cached page: %v", err)
		}
		if again != page {
			t.Error("expected the cached page instance on the second load")
		}
		if f.callCount() != 1 {
			t.Errorf("expected 1 fetch, got %d", f.callCount())
		}
	})

	t.Run("refuses invalid key without fetching", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: singlePageHandler("irrelevant")}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
		)

		_, err := r.LoadPage(context.Background(), model.PageKey{})
		if !errors.Is(err, client.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
		if f.callCount() != 0 {
			t.Errorf("expected 0 fetches, got %d", f.callCount())
		}
	})

	t.Run("retries transient failures to the attempt ceiling", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{
			handler: func(key model.PageKey) (*model.RawDocument, error) {
				return nil, &client.StatusError{Code: http.StatusServiceUnavailable}
			},
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		_, err = r.LoadPage(context.Background(), key)
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		var statusErr *client.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if statusErr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", statusErr.Code)
		}
		if f.callCount() != 3 {
			t.Errorf("expected 3 fetch attempts, got %d", f.callCount())
		}
	})

	t.Run("does not retry non-retryable failures", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{
			handler: func(key model.PageKey) (*model.RawDocument, error) {
				return nil, &client.StatusError{Code: http.StatusNotFound}
			},
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		if _, err := r.LoadPage(context.Background(), key); err == nil {
			t.Fatal("expected error, got nil")
		}
		if f.callCount() != 1 {
			t.Errorf("expected 1 fetch attempt, got %d", f.callCount())
		}
	})

	t.Run("failed load does not block the next one", func(t *testing.T) {
		t.Parallel()

		failing := true
		var mu sync.Mutex
		f := &fakeFetcher{}
		f.handler = func(key model.PageKey) (*model.RawDocument, error) {
			mu.Lock()
			defer mu.Unlock()
			if failing {
				return nil, &client.StatusError{Code: http.StatusNotFound}
			}
			return &model.RawDocument{Key: key, Body: `<div id="post_11">recovered</div>`}, nil
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		if _, err := r.LoadPage(context.Background(), key); err == nil {
			t.Fatal("expected first load to fail")
		}

		mu.Lock()
		failing = false
		mu.Unlock()

		page, err := r.LoadPage(context.Background(), key)
		if err != nil {
			t.Fatalf("expected second load to succeed, got %v", err)
		}
		if len(page.Posts) != 1 {
			t.Errorf("expected 1 post, got %d", len(page.Posts))
		}
	})

	t.Run("expired cache entry is fetched again", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: singlePageHandler(`<div id="post_11">short lived</div>`)}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
			WithCacheTTL(3*time.Millisecond),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		if _, err := r.LoadPage(context.Background(), key); err != nil {
			t.Fatalf("failed to load page: %v", err)
		}

		time.Sleep(10 * time.Millisecond)

		if _, err := r.LoadPage(context.Background(), key); err != nil {
			t.Fatalf("failed to reload page: %v", err)
		}
		if f.callCount() != 2 {
			t.Errorf("expected 2 fetches, got %d", f.callCount())
		}
	})

	t.Run("settled flight does not absorb later loads", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: singlePageHandler(`<div id="post_11">uncached</div>`)}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
			WithCacheTTL(0),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		first, err := r.LoadPage(context.Background(), key)
		if err != nil {
			t.Fatalf("failed to load page: %v", err)
		}
		second, err := r.LoadPage(context.Background(), key)
		if err != nil {
			t.Fatalf("failed to reload page: %v", err)
		}

		if first == second {
			t.Error("expected a fresh computation after the flight settled")
		}
		if f.callCount() != 2 {
			t.Errorf("expected 2 fetches, got %d", f.callCount())
		}
	})
}

func TestRepositoryLoadPageSingleFlight(t *testing.T) {
	t.Parallel()

	t.Run("collapses concurrent loads into one fetch", func(t *testing.T) {
		t.Parallel()

		const callers = 8

		f := &fakeFetcher{
			handler: singlePageHandler(`<div id="post_11">shared result</div>`),
			started: make(chan struct{}, callers),
			release: make(chan struct{}),
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		type result struct {
			page *model.ThreadPage
			err  error
		}
		results := make(chan result, callers)
		for i := 0; i < callers; i++ {
			go func() {
				page, err := r.LoadPage(context.Background(), key)
				results <- result{page: page, err: err}
			}()
		}

		<-f.started
		// Give the remaining callers time to join the flight.
		time.Sleep(100 * time.Millisecond)
		close(f.release)

		var shared *model.ThreadPage
		for i := 0; i < callers; i++ {
			res := <-results
			if res.err != nil {
				t.Fatalf("caller %d failed: %v", i, res.err)
			}
			if shared == nil {
				shared = res.page
			} else if res.page != shared {
				t.Error("expected every caller to receive the same page instance")
			}
		}
		if f.callCount() != 1 {
			t.Errorf("expected 1 fetch, got %d", f.callCount())
		}
	})

	t.Run("shared failure reaches every caller", func(t *testing.T) {
		t.Parallel()

		const callers = 4

		f := &fakeFetcher{
			handler: func(key model.PageKey) (*model.RawDocument, error) {
				return nil, &client.StatusError{Code: http.StatusNotFound}
			},
			started: make(chan struct{}, callers),
			release: make(chan struct{}),
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(retry.Config{Attempts: 1, MinInterval: time.Millisecond, MaxInterval: time.Millisecond}),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			go func() {
				_, err := r.LoadPage(context.Background(), key)
				errs <- err
			}()
		}

		<-f.started
		time.Sleep(100 * time.Millisecond)
		close(f.release)

		for i := 0; i < callers; i++ {
			err := <-errs
			var statusErr *client.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
				t.Errorf("expected shared StatusError 404, got %v", err)
			}
		}
		if f.callCount() != 1 {
			t.Errorf("expected 1 fetch, got %d", f.callCount())
		}
	})

	t.Run("canceled joiner does not cancel the shared fetch", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{
			handler: singlePageHandler(`<div id="post_11">survives cancellation</div>`),
			started: make(chan struct{}, 2),
			release: make(chan struct{}),
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
		)

		key, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}

		ctxA, cancelA := context.WithCancel(context.Background())
		defer cancelA()

		errA := make(chan error, 1)
		go func() {
			_, err := r.LoadPage(ctxA, key)
			errA <- err
		}()

		<-f.started

		type result struct {
			page *model.ThreadPage
			err  error
		}
		resB := make(chan result, 1)
		go func() {
			page, err := r.LoadPage(context.Background(), key)
			resB <- result{page: page, err: err}
		}()

		// Let the second caller join before the first gives up.
		time.Sleep(100 * time.Millisecond)
		cancelA()

		if err := <-errA; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled for the canceled caller, got %v", err)
		}

		close(f.release)

		res := <-resB
		if res.err != nil {
			t.Fatalf("expected surviving caller to succeed, got %v", res.err)
		}
		if len(res.page.Posts) != 1 {
			t.Errorf("expected 1 post, got %d", len(res.page.Posts))
		}
		if f.callCount() != 1 {
			t.Errorf("expected 1 fetch, got %d", f.callCount())
		}
	})
}

func TestRepositoryLoadThread(t *testing.T) {
	t.Parallel()

	walkHandler := func(lastPage int) func(key model.PageKey) (*model.RawDocument, error) {
		return func(key model.PageKey) (*model.RawDocument, error) {
			body := fmt.Sprintf(`<div id="post_%d1">page %d content</div>`, key.Page, key.Page)
			if key.Page < lastPage {
				body += `<a class="nxt" href="#">2</a>`
			}
			return &model.RawDocument{Key: key, Body: body}, nil
		}
	}

	t.Run("walks pages until the last one", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: walkHandler(3)}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
			WithPageDelay(0),
		)

		pages, err := r.LoadThread(context.Background(), "99", 1)
		if err != nil {
			t.Fatalf("failed to load thread: %v", err)
		}

		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		for i, page := range pages {
			if page.Page != i+1 {
				t.Errorf("expected page %d at position %d, got %d", i+1, i, page.Page)
			}
		}
		if pages[2].HasNext {
			t.Error("expected no continuation on the last page")
		}
		if f.callCount() != 3 {
			t.Errorf("expected 3 fetches, got %d", f.callCount())
		}
	})

	t.Run("stops at the page limit", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: walkHandler(1000)}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
			WithPageDelay(0),
			WithMaxPages(2),
		)

		pages, err := r.LoadThread(context.Background(), "99", 1)
		if err != nil {
			t.Fatalf("failed to load thread: %v", err)
		}
		if len(pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(pages))
		}
	})

	t.Run("returns loaded pages alongside a failure", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{}
		f.handler = func(key model.PageKey) (*model.RawDocument, error) {
			if key.Page >= 2 {
				return nil, &client.StatusError{Code: http.StatusNotFound}
			}
			return &model.RawDocument{
				Key:  key,
				Body: `<div id="post_11">only page</div><a class="nxt" href="#">2</a>`,
			}, nil
		}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
			WithPageDelay(0),
		)

		pages, err := r.LoadThread(context.Background(), "99", 1)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if len(pages) != 1 {
			t.Errorf("expected 1 loaded page alongside the error, got %d", len(pages))
		}
	})

	t.Run("sends the previous page as referer", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: walkHandler(2)}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
			WithRetryConfig(fastRetry()),
			WithPageDelay(0),
		)

		if _, err := r.LoadThread(context.Background(), "99", 1); err != nil {
			t.Fatalf("failed to load thread: %v", err)
		}

		if got := f.refererAt(0); got != "" {
			t.Errorf("expected empty referer on the first page, got %q", got)
		}

		firstKey, err := model.NewPageKey("99", 1)
		if err != nil {
			t.Fatalf("failed to create page key: %v", err)
		}
		if got, want := f.refererAt(1), f.ThreadURL(firstKey); got != want {
			t.Errorf("expected referer %q, got %q", want, got)
		}
	})

	t.Run("refuses invalid thread id", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{handler: walkHandler(1)}
		r := NewRepository(f, scrape.NewExtractor("https://forum.example.com"),
			WithLogger(discardLogger()),
		)

		_, err := r.LoadThread(context.Background(), "bad/id", 1)
		if !errors.Is(err, client.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
		if f.callCount() != 0 {
			t.Errorf("expected 0 fetches, got %d", f.callCount())
		}
	})
}
