package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the connectivity probe. The probe only
// exercises the SOCKS5 handshake, not a full request, so it can be
// short.
const checkProxyTimeout = 2 * time.Second

// Client dials through a SOCKS5 proxy. It builds HTTP clients whose
// connections go through the proxy and exposes raw dialing for the
// connectivity probe.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" form.
	proxyAddress string

	// dialer is cached so each connection reuses it.
	dialer proxy.Dialer

	// timeout is the default timeout for HTTP clients built here.
	timeout time.Duration
}

// NewClient creates a proxy client for the given "host:port" address.
// The address format is validated; whether a proxy actually listens
// there is not. Call CheckConnection to verify.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}

	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants.
const (
	socks5Version        = 0x05
	socks5AuthNone       = 0x00
	socks5AuthNoAccept   = 0xFF
	socks5CmdConnect     = 0x01
	socks5AddrTypeDomain = 0x03

	// socks5ProbeHost is the synthetic hostname used by the probe.
	// The .invalid TLD never resolves, so the proxy processes the
	// CONNECT request without reaching any real service.
	socks5ProbeHost = "threadsnap-connectivity.invalid"
)

// CheckConnection probes the proxy and reports its status.
//
// The probe performs a real SOCKS5 handshake: version negotiation
// with no authentication, then a CONNECT request to a synthetic
// hostname. Any well-formed reply, including a failure reply, proves
// the proxy processed the request. A fake listener cannot pass this
// without actually speaking SOCKS5.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Version negotiation: version, one method, no authentication.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if authResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT to the synthetic host. The reply code does not matter,
	// only that the proxy answers the request at all.
	probePort := uint16(80)
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomain,
		byte(len(socks5ProbeHost)),
	}
	connectReq = append(connectReq, []byte(socks5ProbeHost)...)
	connectReq = append(connectReq, byte(probePort>>8), byte(probePort&0xFF))

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// NewHTTPClient builds an HTTP client that routes every connection
// through the proxy. Connection pool limits are smaller than the
// defaults because each connection holds a Tor circuit. Cookies are
// kept in a jar so forum sessions survive across pages.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return c.DialContext(ctx, network, addr)
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Dial establishes a TCP connection through the proxy.
func (c *Client) Dial(network, address string) (net.Conn, error) {
	return c.dialer.Dial(network, address)
}

// DialContext establishes a TCP connection through the proxy with
// context support. The SOCKS5 dialer from x/net/proxy supports
// contexts natively; the goroutine fallback covers any dialer that
// does not, though a cancelled caller cannot abort its in-flight
// connection attempt.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}
