package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"syscall"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

var errBusy = &textproto.Error{Code: 421, Msg: "Too many connections"}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(3), "test", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestRetry_SuccessAfterTransient(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(3), "test", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errBusy
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), "test", func(context.Context) (int, error) {
		calls++
		return 0, errBusy
	})
	require.ErrorIs(t, err, errBusy)
	assert.Equal(t, 2, calls)
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	calls := 0
	perm := &textproto.Error{Code: 550, Msg: "No such file"}
	_, err := Retry(context.Background(), fastPolicy(5), "test", func(context.Context) (int, error) {
		calls++
		return 0, perm
	})
	require.ErrorIs(t, err, perm)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Attempts: 10, Backoff: time.Hour}

	_, err := Retry(ctx, p, "test", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errBusy
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CustomShouldRetry(t *testing.T) {
	calls := 0
	p := fastPolicy(3)
	p.ShouldRetry = func(error) bool { return true }

	_, err := Retry(context.Background(), p, "test", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("anything")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{Backoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 300*time.Millisecond, p.delay(3), "capped")

	p.Jitter = 0.5
	for i := 0; i < 20; i++ {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", timeoutErr{}, true},
		{"wrapped reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"refused", syscall.ECONNREFUSED, false},
		{"ftp busy", errBusy, true},
		{"ftp not found", &textproto.Error{Code: 550, Msg: "missing"}, false},
		{"message heuristic", errors.New("write tcp: broken pipe"), true},
		{"plain", errors.New("bad json"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransient_ErisWrapped(t *testing.T) {
	err := eris.Wrap(errBusy, "ftp retrieve")
	assert.True(t, IsTransient(err))
	assert.False(t, IsTransient(eris.Wrap(errors.New("no such file"), "ftp retrieve")))
}
