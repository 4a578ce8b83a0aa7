// Package netutil answers whether outbound network access exists.
package netutil

import (
	"net"
	"strconv"
	"time"
)

// Defaults for the connectivity probe: a well-known public resolver and a
// short timeout so an offline machine isn't stuck waiting.
const (
	DefaultProbeHost    = "8.8.8.8"
	DefaultProbePort    = 53
	DefaultProbeTimeout = 3 * time.Second
)

// Available attempts a bounded TCP connection and reports whether it
// succeeded. It never returns an error; refused connections, timeouts,
// and DNS failures all map to false.
func Available(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// InternetAvailable probes the default target.
func InternetAvailable() bool {
	return Available(DefaultProbeHost, DefaultProbePort, DefaultProbeTimeout)
}
