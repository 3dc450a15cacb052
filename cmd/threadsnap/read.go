package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yomite/threadsnap/internal/client"
	"github.com/yomite/threadsnap/internal/config"
	"github.com/yomite/threadsnap/internal/log"
	"github.com/yomite/threadsnap/internal/model"
	"github.com/yomite/threadsnap/internal/render"
	"github.com/yomite/threadsnap/internal/repo"
	"github.com/yomite/threadsnap/internal/retry"
	"github.com/yomite/threadsnap/internal/scrape"
	"github.com/yomite/threadsnap/internal/tor"
)

// NewReadCmd creates the read command.
func NewReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <thread-id> [page]",
		Short: "Read one page of a forum thread",
		Long: `Read fetches a single page of a forum thread and renders it to the
terminal. The thread id is the numeric id from the thread URL; the
optional page argument selects a page other than the first.

The forum origin comes from the --origin flag or from a forum profile
in the configuration file (see 'threadsnap init').

Examples:
  # Read the first page of thread 1843321
  threadsnap read 1843321 --origin https://bbs.example.com

  # Read page 3 using the default forum profile from .threadsnap.yaml
  threadsnap read 1843321 3

  # Render as JSON and write to a file
  threadsnap read 1843321 --json -o thread.json

  # Read through a local SOCKS5 proxy
  threadsnap read 1843321 --proxy 127.0.0.1:1080`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runReadCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Render the page as indented JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Render the page as Markdown")
	cmd.Flags().StringP("output", "o", "", "Write output to file instead of stdout")

	return cmd
}

// runReadCmd executes the read command.
func runReadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildReadConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("failed to build configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	fetchClient, cleanup, err := newFetchClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	repository := newRepository(fetchClient, cfg, logger)

	key, err := model.NewPageKey(cfg.Targets[0], cfg.PageNumber)
	if err != nil {
		return err
	}

	page, err := repository.LoadPage(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read thread %s page %d: %w", key.ThreadID, key.Page, err)
	}

	output, closeOutput, err := openOutput(cfg.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeOutput(); err != nil {
			logger.Error("failed to close output", "error", err)
		}
	}()

	if _, err := newPageWriter(cfg, output).WritePage(page); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// buildReadConfig builds the configuration for the read command from
// CLI flags and arguments.
func buildReadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := fetchConfigFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	cfg.Targets = args[:1]
	if len(args) == 2 {
		page, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", args[1])
		}
		cfg.PageNumber = page
	}

	cfg.JSONOutput, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownOutput, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	if err := applyForumProfile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// addFetchFlags registers the flags shared by every command that
// fetches thread pages from the network.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("origin", "", "Forum origin, scheme and host (e.g. https://bbs.example.com)")
	cmd.Flags().StringP("forum", "f", "", "Forum profile name from the configuration file")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .threadsnap.yaml, then XDG config)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "HTTP timeout for each page fetch")
	cmd.Flags().String("charset", "", "Force the document charset (e.g. gbk, big5)")
	cmd.Flags().String("cookie", "", "Cookie header value sent with every request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().String("path-template", config.DefaultPathTemplate, "Thread page URL layout relative to the origin")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL, "How long fetched pages stay valid in the in-process cache")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryAttempts, "Total fetch attempts per page, including the first")
	cmd.Flags().String("proxy", "", "Route fetches through a SOCKS5 proxy at host:port")
	cmd.Flags().Bool("tor", false, "Start an embedded Tor daemon and route fetches through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")
}

// fetchConfigFromFlags reads the shared fetch flags into a new Config.
func fetchConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	var err error

	cfg.Origin, err = cmd.Flags().GetString("origin")
	if err != nil {
		return nil, err
	}

	cfg.ForumName, err = cmd.Flags().GetString("forum")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Charset, err = cmd.Flags().GetString("charset")
	if err != nil {
		return nil, err
	}

	cfg.Cookie, err = cmd.Flags().GetString("cookie")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.PathTemplate, err = cmd.Flags().GetString("path-template")
	if err != nil {
		return nil, err
	}

	cfg.CacheTTL, err = cmd.Flags().GetDuration("cache-ttl")
	if err != nil {
		return nil, err
	}

	cfg.RetryAttempts, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.UseTor, err = cmd.Flags().GetBool("tor")
	if err != nil {
		return nil, err
	}

	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyForumProfile loads the configuration file, if any, and applies
// the selected forum profile to cfg. Flags set explicitly keep their
// values; only unset fields inherit from the profile.
func applyForumProfile(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		forums, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration file %s: %w", configPath, err)
		}
		cfg.Forums = forums
	} else if explicitConfigPath {
		// An explicitly specified config file that doesn't exist is an error
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if cfg.Forums == nil {
		if cfg.ForumName != "" {
			return fmt.Errorf("forum profile %q requested but no configuration file was found", cfg.ForumName)
		}
		return nil
	}

	name := cfg.ForumName
	if name != "" {
		if _, ok := cfg.Forums.Forums[name]; !ok {
			return fmt.Errorf("forum profile %q not found in %s", name, configPath)
		}
	} else {
		name = cfg.Forums.Default
	}

	cfg.ApplyForum(cfg.Forums.GetForumConfig(name))
	return nil
}

// getVerboseFlag retrieves the verbose flag value from the command or
// its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a logger with the appropriate level. Cookie and
// proxy credentials are scrubbed from all records.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt signal, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// newFetchClient builds the HTTP client for cfg, routed through a
// SOCKS5 proxy or an embedded Tor daemon when one is configured. The
// returned cleanup function stops the embedded daemon; it is never nil.
func newFetchClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*client.Client, func(), error) {
	cleanup := func() {}

	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithPathTemplate(cfg.PathTemplate),
		client.WithUserAgent(cfg.UserAgent),
		client.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.Cookie != "" {
		opts = append(opts, client.WithCookie(cfg.Cookie))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, client.WithHeaders(cfg.Headers))
	}
	if cfg.Charset != "" {
		opts = append(opts, client.WithCharset(cfg.Charset))
	}

	switch {
	case cfg.UseTor:
		fmt.Println("Starting embedded Tor daemon...")
		fmt.Println("This may take 1-3 minutes while Tor bootstraps.")
		fmt.Println()

		torRuntime := tor.NewRuntime(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := torRuntime.Start(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		cleanup = func() {
			if err := torRuntime.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		proxyClient, err := torRuntime.NewClient(cfg.Timeout)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("failed to create Tor proxy client: %w", err)
		}
		if status := proxyClient.CheckConnection(ctx); status != tor.ProxyStatusOK {
			cleanup()
			return nil, func() {}, fmt.Errorf("embedded Tor proxy check failed: %s", status)
		}
		logger.Info("embedded Tor daemon started", "socksAddr", torRuntime.SocksAddr())
		opts = append(opts, client.WithHTTPClient(proxyClient.NewHTTPClient()))

	case cfg.ProxyAddress != "":
		proxyClient, err := tor.NewClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if status := proxyClient.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, cleanup, fmt.Errorf("proxy check failed: %s (is a SOCKS5 proxy listening at %s?)",
				status, cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		opts = append(opts, client.WithHTTPClient(proxyClient.NewHTTPClient()))
	}

	fetchClient, err := client.New(cfg.Origin, opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("failed to create fetch client: %w", err)
	}
	return fetchClient, cleanup, nil
}

// newRepository builds the page repository on top of the fetch client.
func newRepository(fetchClient *client.Client, cfg *config.Config, logger *slog.Logger) *repo.Repository {
	return repo.NewRepository(fetchClient, scrape.NewExtractor(cfg.Origin),
		repo.WithCacheTTL(cfg.CacheTTL),
		repo.WithRetryConfig(retry.Config{
			Attempts:    uint64(cfg.RetryAttempts),
			MinInterval: cfg.MinBackoff,
			MaxInterval: cfg.MaxBackoff,
		}),
		repo.WithPageDelay(cfg.PageDelay),
		repo.WithMaxPages(cfg.MaxPages),
		repo.WithLogger(logger),
	)
}

// openOutput opens the output destination for rendered pages. An empty
// path means stdout. Parent directories are created as needed, and the
// file is created with owner-only permissions because thread content
// may come from cookie-gated boards.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newPageWriter selects the renderer for cfg's output format.
func newPageWriter(cfg *config.Config, output io.Writer) render.Writer {
	switch {
	case cfg.JSONOutput:
		return render.NewJSONWriter(output, render.WithPrettyPrint())
	case cfg.MarkdownOutput:
		return render.NewMarkdownWriter(output)
	default:
		return render.NewSimpleWriter(output, render.WithVerbose(cfg.Verbose))
	}
}
