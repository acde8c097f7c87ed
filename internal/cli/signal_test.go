package cli

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownContext_Stop(t *testing.T) {
	ctx, stop := ShutdownContext(context.Background())
	stop()

	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
	assert.Nil(t, ShutdownSignal(ctx))
}

func TestShutdownContext_ParentCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := ShutdownContext(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	assert.Nil(t, ShutdownSignal(ctx))
}

func TestShutdownSignal(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(&SignalError{Signal: syscall.SIGTERM})

	assert.Equal(t, syscall.SIGTERM, ShutdownSignal(ctx))
	assert.EqualError(t, context.Cause(ctx), "received terminated")
}
