package tor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// Runtime manages an embedded Tor daemon via tornago, for hosts
// without an external Tor installation.
//
// Starting the daemon takes one to three minutes: it has to download
// directory information, build initial circuits, and open its SOCKS
// and control listeners.
type Runtime struct {
	// process is the running Tor daemon, nil until Start succeeds.
	process *tornago.TorProcess

	// socksAddr is the SOCKS5 address, set after startup.
	socksAddr string

	// controlAddr is the control port address, set after startup.
	controlAddr string

	// startupTimeout bounds the bootstrap wait.
	startupTimeout time.Duration
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithStartupTimeout sets the maximum time to wait for Tor to
// bootstrap.
func WithStartupTimeout(timeout time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.startupTimeout = timeout
	}
}

// NewRuntime creates an embedded Tor manager. Call Start to launch
// the daemon.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		startupTimeout: 3 * time.Minute,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start launches the embedded Tor daemon and blocks until it has
// bootstrapped or the startup timeout expires. Ports are assigned by
// the OS.
func (r *Runtime) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(r.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = process.Stop() //nolint:errcheck // best effort cleanup
		return ctx.Err()
	default:
	}

	r.process = process
	r.socksAddr = process.SocksAddr()
	r.controlAddr = process.ControlAddr()

	return nil
}

// Stop shuts down the embedded daemon. Calling Stop on an unstarted
// or already stopped Runtime is a no-op.
func (r *Runtime) Stop() error {
	if r.process == nil {
		return nil
	}

	err := r.process.Stop()
	r.process = nil
	return err
}

// SocksAddr returns the SOCKS5 address of the running daemon, or the
// empty string when it is not running.
func (r *Runtime) SocksAddr() string {
	return r.socksAddr
}

// ControlAddr returns the control port address of the running daemon,
// or the empty string when it is not running.
func (r *Runtime) ControlAddr() string {
	return r.controlAddr
}

// IsRunning reports whether the embedded daemon is running.
func (r *Runtime) IsRunning() bool {
	return r.process != nil
}

// NewClient creates a proxy client dialing through the embedded
// daemon's SOCKS port.
func (r *Runtime) NewClient(timeout time.Duration) (*Client, error) {
	if !r.IsRunning() {
		return nil, errors.New("embedded Tor daemon is not running")
	}

	return NewClient(r.socksAddr, timeout)
}
