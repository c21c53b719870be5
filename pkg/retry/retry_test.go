package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string { return fmt.Sprintf("status %d", e.code) }

func classify(err error) bool {
	var se *statusErr
	return errors.As(err, &se) && IsTransientStatus(se.code)
}

func fastPolicy(tries uint) Policy {
	return Policy{
		MaxTries:        tries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		IsTransient:     classify,
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &statusErr{code: 503}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), "test", func(context.Context) (int, error) {
		calls++
		return 0, &statusErr{code: 403}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var se *statusErr
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 403, se.code)
}

func TestDoGivesUpAfterMaxTries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), "test", func(context.Context) (int, error) {
		calls++
		return 0, &statusErr{code: 429}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoAppliesPerCallTimeout(t *testing.T) {
	p := fastPolicy(2)
	p.PerCallTimeout = 5 * time.Millisecond

	calls := 0
	_, err := Do(context.Background(), p, "test", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestDoDoesNotRetryAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(5), "test", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &statusErr{code: 503}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOnlyWhenSkipsNetworkTimeouts(t *testing.T) {
	p := fastPolicy(3).OnlyWhen(func(err error) bool {
		var se *statusErr
		return errors.As(err, &se) && se.code == 429
	})
	p.PerCallTimeout = 5 * time.Millisecond

	calls := 0
	_, err := Do(context.Background(), p, "clone", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)

	calls = 0
	_, err = Do(context.Background(), p, "clone", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &statusErr{code: 429}
		}
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
