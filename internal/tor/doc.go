// Package tor routes forum traffic through a SOCKS5 proxy.
//
// Some forums are unreachable from certain networks or are served
// through onion mirrors. This package dials an external SOCKS5 proxy
// (typically a local Tor daemon) or launches an embedded Tor runtime
// via tornago, and builds HTTP clients whose connections go through
// that proxy.
//
// Create a Client and inject the *http.Client it builds into the
// fetch layer; nothing here holds global state.
package tor
