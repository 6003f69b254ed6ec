package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://127.0.0.1:8080/?auth=abc%2B%3D", ShareURL("127.0.0.1", 8080, "abc%2B%3D"))
	assert.Equal(t, "http://[::1]:9000/?auth=k", ShareURL("::1", 9000, "k"))
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://127.0.0.1:8080/?auth=***", RedactURL("http://127.0.0.1:8080/?auth=secret"))
	assert.Equal(t, "http://127.0.0.1:8080/", RedactURL("http://127.0.0.1:8080/"))
}

func TestDisplayHost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "127.0.0.1", DisplayHost("127.0.0.1"))
	assert.Equal(t, "localhost", DisplayHost("localhost"))
	assert.Equal(t, "::1", DisplayHost("[::1]"))
	assert.NotEqual(t, "0.0.0.0", DisplayHost("0.0.0.0"))
	assert.NotEmpty(t, DisplayHost(""))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 05s"},
		{2*time.Hour + time.Minute, "2h 01m 00s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1536*1024))
}
