// Package host implements a reference platform service: the receiving side
// of the protocol. It validates the interface token, decodes window state and
// keeps the host clipboard. It backs `hostsync host` and the proxy tests.
package host
