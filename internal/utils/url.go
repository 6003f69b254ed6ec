package utils

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ShareURL builds the address viewers open: http://host:port/?auth=key.
// key must already be query-escaped.
func ShareURL(host string, port int, key string) string {
	return fmt.Sprintf("http://%s/?auth=%s", net.JoinHostPort(host, strconv.Itoa(port)), key)
}

// RedactURL replaces the auth value of a share URL so it can be shown on a
// dashboard or written to a log.
func RedactURL(shareURL string) string {
	u, err := url.Parse(shareURL)
	if err != nil {
		return ""
	}
	if u.RawQuery != "" {
		u.RawQuery = "auth=***"
	}
	return u.String()
}

// DisplayHost picks the host to print in a share URL. A wildcard bind
// address is replaced by the first non-loopback IPv4 address of this
// machine, falling back to localhost.
func DisplayHost(bind string) string {
	bind = strings.Trim(bind, "[]")
	if bind != "" {
		if ip := net.ParseIP(bind); ip == nil || !ip.IsUnspecified() {
			return bind
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "localhost"
}
