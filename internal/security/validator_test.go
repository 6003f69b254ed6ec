package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePort(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePort(0))
	assert.NoError(t, ValidatePort(8080))
	assert.NoError(t, ValidatePort(65535))
	assert.ErrorIs(t, ValidatePort(-1), ErrInvalidPort)
	assert.ErrorIs(t, ValidatePort(65536), ErrInvalidPort)
}

func TestValidateBindAddress(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"", "localhost", "127.0.0.1", "0.0.0.0", "::1", "[::1]"} {
		assert.NoError(t, ValidateBindAddress(ok), ok)
	}
	for _, bad := range []string{"999.1.1.1", "example.com", "127.0.0.1:80"} {
		assert.ErrorIs(t, ValidateBindAddress(bad), ErrInvalidAddress, bad)
	}
}

func TestSanitizeInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GET / HTTP/1.1", SanitizeInput("GET /\x00 HTTP/1.1\r\n"))
	assert.Equal(t, "a\tb", SanitizeInput("a\tb\x1b"))
}

func TestRedactAuth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GET /?auth=*** HTTP/1.1", RedactAuth("GET /?auth=secret HTTP/1.1"))
	assert.Equal(t, "GET /?auth=***", RedactAuth("GET /?auth=secret"))
	assert.Equal(t, "GET / HTTP/1.1", RedactAuth("GET / HTTP/1.1"))
}
