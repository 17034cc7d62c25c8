package async

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendata-nc/registre/pkg/observability"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestSafeGo_Success(t *testing.T) {
	var executed atomic.Bool

	wait(t, SafeGo(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	}))

	assert.True(t, executed.Load())
}

func TestSafeGo_ErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	ctx := observability.WithLogger(context.Background(), observability.NewLogger(observability.InfoLevel, &buf))
	ctx = observability.WithRequestID(ctx, "req-1")

	wait(t, SafeGo(ctx, time.Second, "record search", func(ctx context.Context) error {
		return errors.New("insert failed")
	}))

	out := buf.String()
	assert.Contains(t, out, "insert failed")
	assert.Contains(t, out, "record search")
	assert.Contains(t, out, "req-1")
}

func TestSafeGo_Timeout(t *testing.T) {
	var cancelled atomic.Bool

	wait(t, SafeGo(context.Background(), 20*time.Millisecond, "slow task", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			cancelled.Store(true)
			return ctx.Err()
		}
	}))

	assert.True(t, cancelled.Load())
}

func TestSafeGo_OutlivesParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(observability.WithRequestID(context.Background(), "req-2"))
	cancel()

	var sawErr error
	var requestID string
	wait(t, SafeGo(parent, time.Second, "detached", func(ctx context.Context) error {
		sawErr = ctx.Err()
		requestID = observability.GetRequestID(ctx)
		return nil
	}))

	require.NoError(t, sawErr)
	assert.Equal(t, "req-2", requestID)
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	ctx := observability.WithLogger(context.Background(), observability.NewLogger(observability.InfoLevel, &buf))

	wait(t, SafeGo(ctx, time.Second, "panicking task", func(ctx context.Context) error {
		panic("boom")
	}))

	assert.Contains(t, buf.String(), "PANIC recovered")
}
