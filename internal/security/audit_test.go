package security

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskstream/internal/constants"
	"deskstream/internal/events"
)

func readAudit(t *testing.T, path string) []AuditEvent {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev AuditEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		out = append(out, ev)
	}
	return out
}

func TestAuditLogger_MapsBusEvents(t *testing.T) {
	t.Parallel()

	al, err := NewAuditLogger(t.TempDir())
	require.NoError(t, err)
	path := al.Path()

	ctx := context.Background()
	require.NoError(t, al.Deliver(ctx, events.New(events.AuthFailed, "s1", "10.1.1.1:4000", "invalid key")))
	require.NoError(t, al.Deliver(ctx, events.New(events.SessionStreaming, "s2", "10.1.1.2:4000", "")))
	require.NoError(t, al.Deliver(ctx, events.New(events.SessionOpened, "s3", "10.1.1.3:4000", "")))
	require.NoError(t, al.Deliver(ctx, events.New(events.AuthBlocked, "s4", "10.1.1.1:4001", "locked out")))
	require.NoError(t, al.Close())

	got := readAudit(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, "auth_failure", got[0].EventType)
	assert.Equal(t, "10.1.1.1", got[0].IP)
	assert.Equal(t, "invalid key", got[0].Details)
	assert.Equal(t, "auth_success", got[1].EventType)
	assert.Equal(t, "brute_force", got[2].EventType)
	assert.Equal(t, "critical", got[2].Severity)
}

func TestAuditLogger_CapsWritesPerMinute(t *testing.T) {
	t.Parallel()

	al, err := NewAuditLogger(t.TempDir())
	require.NoError(t, err)
	path := al.Path()

	for i := 0; i < constants.MaxAuditLogsPerMinute+25; i++ {
		al.LogAuthFailure("10.0.0.1", "", "bad")
	}
	require.NoError(t, al.Close())

	assert.Len(t, readAudit(t, path), constants.MaxAuditLogsPerMinute)
}

func TestAuditLogger_NilAndClosedAreSafe(t *testing.T) {
	t.Parallel()

	var nilLogger *AuditLogger
	assert.NotPanics(t, func() { nilLogger.LogServerStart("x") })
	assert.NoError(t, nilLogger.Close())

	al, err := NewAuditLogger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, al.Close())
	assert.NotPanics(t, func() { al.LogServerStop("after close") })
}
