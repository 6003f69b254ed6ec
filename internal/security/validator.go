package security

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"deskstream/internal/constants"
)

var (
	ErrInvalidPort    = errors.New("invalid port")
	ErrInvalidAddress = errors.New("invalid bind address")
)

// ValidatePort accepts 0 (ephemeral) through 65535.
func ValidatePort(port int) error {
	if port < constants.MinPort || port > constants.MaxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}

// ValidateBindAddress accepts an IP literal, "localhost" or the empty string
// (all interfaces).
func ValidateBindAddress(addr string) error {
	if addr == "" || addr == "localhost" {
		return nil
	}
	if net.ParseIP(strings.Trim(addr, "[]")) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}

// SanitizeInput strips control characters so client-supplied text is safe to
// log.
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// RedactAuth hides the credential in a request line before it is logged.
func RedactAuth(line string) string {
	idx := strings.Index(line, constants.AuthQueryKey)
	if idx == -1 {
		return line
	}
	start := idx + len(constants.AuthQueryKey)
	end := strings.IndexByte(line[start:], ' ')
	if end == -1 {
		return line[:start] + "***"
	}
	return line[:start] + "***" + line[start+end:]
}
