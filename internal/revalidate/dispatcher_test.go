package revalidate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cartcraft/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTrigger struct {
	mu          sync.Mutex
	paths       []string
	credentials []string
	err         error
	block       chan struct{}
	ctxErr      error
}

func (r *recordingTrigger) Revalidate(ctx context.Context, pagePath, credential string) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			r.mu.Lock()
			r.ctxErr = ctx.Err()
			r.mu.Unlock()
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, pagePath)
	r.credentials = append(r.credentials, credential)
	return r.err
}

func TestDispatcher_RunsTriggerInBackground(t *testing.T) {
	// given
	trigger := &recordingTrigger{}
	d := NewDispatcher(trigger, time.Second, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	// when
	d.Dispatch(ctx, "/products/a", "s3cret")
	cancel() // the request finishing must not abort the invalidation
	require.NoError(t, d.Wait(context.Background()))

	// then
	assert.Equal(t, []string{"/products/a"}, trigger.paths)
	assert.Equal(t, []string{"s3cret"}, trigger.credentials)
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	trigger := &recordingTrigger{err: errors.New("endpoint down")}
	d := NewDispatcher(trigger, time.Second, logger.Discard())

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), "/products/a", "k")
		require.NoError(t, d.Wait(context.Background()))
	})
	assert.Len(t, trigger.paths, 1)
}

func TestDispatcher_DoesNotBlockCaller(t *testing.T) {
	// given
	trigger := &recordingTrigger{block: make(chan struct{})}
	d := NewDispatcher(trigger, 0, logger.Discard())

	// when
	returned := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), "/products/slow", "k")
		close(returned)
	}()

	// then
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a hung trigger")
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(waitCtx), context.DeadlineExceeded)

	close(trigger.block)
	require.NoError(t, d.Wait(context.Background()))
}

func TestDispatcher_TimeoutBoundsHungTrigger(t *testing.T) {
	trigger := &recordingTrigger{block: make(chan struct{})}
	d := NewDispatcher(trigger, 10*time.Millisecond, logger.Discard())

	d.Dispatch(context.Background(), "/products/slow", "k")
	require.NoError(t, d.Wait(context.Background()))

	assert.ErrorIs(t, trigger.ctxErr, context.DeadlineExceeded)
	assert.Empty(t, trigger.paths)
}
