package password

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unzip/internal/ziptype"
)

func TestCoordinatorSuppliedPassword(t *testing.T) {
	t.Parallel()

	c := New([]byte("secret"), func(context.Context) ([]byte, error) {
		t.Fatal("prompt must not run when a password is supplied")
		return nil, nil
	})

	pw, ok := c.Cached()
	require.True(t, ok)
	assert.Equal(t, []byte("secret"), pw)
	assert.False(t, c.CanPrompt())

	got, err := c.Password(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
}

func TestCoordinatorNoChannel(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)
	_, ok := c.Cached()
	assert.False(t, ok)
	assert.False(t, c.CanPrompt())

	_, err := c.Password(context.Background())
	assert.ErrorIs(t, err, ziptype.ErrPasswordRequired)
}

func TestCoordinatorPromptsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	c := New(nil, func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("pw"), nil
	})
	require.True(t, c.CanPrompt())

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Password(context.Background())
		}()
	}

	// Give every caller a chance to block on the in-flight prompt.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("pw"), results[i])
	}
	assert.False(t, c.CanPrompt())
}

func TestCoordinatorPromptFailureIsSticky(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prompt Prompter
	}{
		{
			name:   "empty answer",
			prompt: func(context.Context) ([]byte, error) { return nil, nil },
		},
		{
			name:   "prompt error",
			prompt: func(context.Context) ([]byte, error) { return nil, errors.New("no tty") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			c := New(nil, func(ctx context.Context) ([]byte, error) {
				calls.Add(1)
				return tt.prompt(ctx)
			})

			_, err := c.Password(context.Background())
			assert.ErrorIs(t, err, ziptype.ErrPasswordRequired)
			_, err = c.Password(context.Background())
			assert.ErrorIs(t, err, ziptype.ErrPasswordRequired)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestCoordinatorWaiterCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	c := New(nil, func(context.Context) ([]byte, error) {
		close(started)
		<-release
		return []byte("pw"), nil
	})

	go func() { _, _ = c.Password(context.Background()) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Password(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}
