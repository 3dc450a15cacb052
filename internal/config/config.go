package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These are tuned for public forum mirrors,
// which are rate-limit sensitive but otherwise ordinary web servers.
const (
	// DefaultTimeout is the per-request timeout. Forum mirrors answer in
	// well under a second when healthy; 30 seconds leaves room for
	// overloaded mirrors without hanging the terminal indefinitely.
	DefaultTimeout = 30 * time.Second

	// DefaultCacheTTL is how long a fetched page stays valid in the
	// in-process cache. Thread pages change when someone replies, so the
	// window is short. Can be adjusted via the --cache-ttl CLI flag.
	DefaultCacheTTL = 60 * time.Second

	// DefaultRetryAttempts is the total number of fetch attempts per page,
	// including the first. The third failure is surfaced to the caller.
	DefaultRetryAttempts = 3

	// DefaultMinBackoff is the base delay before the first retry.
	// Subsequent delays double, with random jitter applied.
	DefaultMinBackoff = 500 * time.Millisecond

	// DefaultMaxBackoff caps the delay between retry attempts.
	DefaultMaxBackoff = 8 * time.Second

	// DefaultPageDelay is the delay between page fetches when walking a
	// whole thread. This is a politeness setting: forums throttle or ban
	// clients that page through threads at full speed.
	DefaultPageDelay = 1 * time.Second

	// DefaultMaxPages is the maximum number of pages to walk per thread.
	// This prevents runaway walks on very long or self-extending threads.
	// Users can override this via the --max-pages CLI flag; 0 disables
	// the bound.
	DefaultMaxPages = 50

	// DefaultConcurrency is the number of threads snapshotted in parallel
	// when multiple targets are given. Pages within one thread are always
	// fetched sequentially.
	DefaultConcurrency = 3

	// DefaultMaxBodySize limits the response body size read per page.
	// 8MB covers even image-heavy thread pages while preventing memory
	// exhaustion from unexpected responses.
	DefaultMaxBodySize = 8 * 1024 * 1024 // 8MB

	// DefaultUserAgent identifies threadsnap in HTTP requests.
	// A descriptive User-Agent lets forum operators identify the traffic.
	DefaultUserAgent = "threadsnap/1.0 (+https://github.com/yomite/threadsnap)"

	// DefaultPathTemplate is the URL path for one thread page, relative to
	// the forum origin. The first verb is the thread id, the second the
	// 1-based page number.
	DefaultPathTemplate = "thread-%s-%d-1.html"

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap when --tor is used.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "threadsnap"
)

// Config holds all configuration options for threadsnap. It is populated
// from defaults, then the configuration file, then CLI flags, and passed
// through the application by dependency injection rather than global state.
type Config struct {
	// Origin is the canonical forum origin, scheme and host, without a
	// trailing slash (e.g. "https://bbs.example.com"). Required: it is
	// both the fetch target and the base for absolutizing relative
	// references in post content.
	Origin string

	// PathTemplate is the URL path of one thread page relative to Origin.
	// It must contain a %s verb for the thread id followed by a %d verb
	// for the page number.
	PathTemplate string

	// Charset forces a document character set (e.g. "gbk", "big5").
	// When empty, the charset is taken from the Content-Type header or a
	// meta tag, falling back to UTF-8.
	Charset string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Cookie is an HTTP cookie header value sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2". Some forums
	// gate thread content behind a session cookie.
	Cookie string

	// Headers are extra HTTP headers to include in every request.
	Headers map[string]string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	// Empty means direct connections.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes all fetches through
	// it. Useful where the forum is unreachable from the local network.
	// Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// Timeout is the HTTP timeout for each page fetch attempt.
	Timeout time.Duration

	// CacheTTL is the maximum age at which a cached page is still served
	// without refetching.
	CacheTTL time.Duration

	// RetryAttempts is the total number of fetch attempts per page,
	// including the first.
	RetryAttempts int

	// MinBackoff is the base delay before the first retry. Delays double
	// per attempt up to MaxBackoff, with random jitter applied.
	MinBackoff time.Duration

	// MaxBackoff caps the delay between retry attempts.
	MaxBackoff time.Duration

	// PageDelay is the politeness delay between page fetches when walking
	// a whole thread.
	PageDelay time.Duration

	// MaxPages bounds how many pages a thread walk will fetch.
	// 0 means no bound.
	MaxPages int

	// Concurrency is the number of threads processed in parallel when
	// snapshotting multiple targets.
	Concurrency int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are truncated.
	MaxBodySize int64

	// DataDir is the directory holding the SQLite archive. Defaults to
	// the XDG data directory when empty.
	DataDir string

	// ExportDir, when set, makes the save command write one Markdown file
	// per thread beside the archive rows.
	ExportDir string

	// JSONOutput renders pages as indented JSON instead of terminal text.
	// Mutually exclusive with MarkdownOutput.
	JSONOutput bool

	// MarkdownOutput renders pages as Markdown instead of terminal text.
	// Mutually exclusive with JSONOutput.
	MarkdownOutput bool

	// OutputFile writes rendered output to this path instead of stdout.
	// Parent directories are created as needed.
	OutputFile string

	// Offline makes the export command read the thread from the archive
	// instead of the network.
	Offline bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches .threadsnap.yaml in the current directory and then
	// the XDG config directory.
	ConfigFilePath string

	// ForumName selects a forum profile from the configuration file.
	// Empty means the file's default profile, if any.
	ForumName string

	// Forums holds the forum profiles loaded from the config file.
	Forums *File

	// PageNumber is the page requested by the read command (1-based).
	PageNumber int

	// Targets is the list of thread ids to operate on.
	Targets []string
}

// NewConfig creates a new Config with default values. Fields whose zero
// value is not a usable default (timeouts, limits, templates) are filled
// here; users override specific values after creation.
func NewConfig() *Config {
	return &Config{
		PathTemplate:      DefaultPathTemplate,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		CacheTTL:          DefaultCacheTTL,
		RetryAttempts:     DefaultRetryAttempts,
		MinBackoff:        DefaultMinBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		PageDelay:         DefaultPageDelay,
		MaxPages:          DefaultMaxPages,
		Concurrency:       DefaultConcurrency,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		PageNumber:        1,
	}
}

// XDGDataDir returns the XDG data directory for threadsnap.
// On Linux: ~/.local/share/threadsnap
// On macOS: ~/Library/Application Support/threadsnap
// On Windows: %LOCALAPPDATA%\threadsnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for threadsnap.
// On Linux: ~/.config/threadsnap
// On macOS: ~/Library/Application Support/threadsnap
// On Windows: %APPDATA%\threadsnap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for threadsnap.
// On Linux: ~/.cache/threadsnap
// On macOS: ~/Library/Caches/threadsnap
// On Windows: %LOCALAPPDATA%\threadsnap\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ApplyForum fills unset Config fields from a forum profile. CLI flags
// that were set explicitly keep their values; only empty fields inherit
// from the profile.
func (c *Config) ApplyForum(fc ForumConfig) {
	if c.Origin == "" {
		c.Origin = fc.Origin
	}
	if c.PathTemplate == "" || c.PathTemplate == DefaultPathTemplate {
		if fc.PathTemplate != "" {
			c.PathTemplate = fc.PathTemplate
		}
	}
	if c.Charset == "" {
		c.Charset = fc.Charset
	}
	if fc.UserAgent != "" && c.UserAgent == DefaultUserAgent {
		c.UserAgent = fc.UserAgent
	}
	if c.Cookie == "" {
		c.Cookie = fc.Cookie
	}
	if len(fc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(fc.Headers))
		}
		for k, v := range fc.Headers {
			if _, ok := c.Headers[k]; !ok {
				c.Headers[k] = v
			}
		}
	}
}

// Validate checks if the configuration is valid. It returns the first
// problem found as a sentinel error usable with errors.Is. Called once
// after CLI parsing, before any network or archive work begins.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Origin == "" && !c.Offline {
		return ErrNoOrigin
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PageNumber < 1 {
		return ErrInvalidPageNumber
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if c.RetryAttempts < 1 {
		return ErrInvalidRetryAttempts
	}
	if c.MinBackoff <= 0 || c.MaxBackoff < c.MinBackoff {
		return ErrInvalidBackoff
	}
	if c.PageDelay < 0 {
		return ErrInvalidPageDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONOutput && c.MarkdownOutput {
		return ErrConflictingOutputFormats
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxyModes
	}
	return nil
}
