package tor

import "errors"

// Proxy connectivity errors. Callers can branch on these to retry a
// timeout but fail fast on a wrong proxy type.
var (
	// ErrProxyWrongType is returned when the configured address
	// responds but does not speak the SOCKS5 protocol, for example a
	// plain HTTP proxy listening on the expected port.
	ErrProxyWrongType = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the
	// proxy address can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to SOCKS5 proxy")

	// ErrProxyTimeout is returned when the proxy check times out.
	ErrProxyTimeout = errors.New("timeout connecting to SOCKS5 proxy")

	// ErrInvalidProxyAddress is returned when the proxy address is not
	// in "host:port" form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// ProxyStatus is the result of probing the proxy connection.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a working SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the address responded with
	// something other than SOCKS5.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates no connection could be made.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the probe timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for this status, or nil when the status is OK.
func (s ProxyStatus) Err() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyWrongType
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
