package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapTransportErrorContext(t *testing.T) {
	t.Parallel()

	err := MapTransportError(context.DeadlineExceeded, false)
	assert.True(t, IsTimeout(err))

	err = MapTransportError(context.Canceled, false)
	assert.True(t, IsCanceled(err))

	assert.Nil(t, MapTransportError(nil, false))
}

func TestMapTransportErrorPhase(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("400::handshake rejected")

	// Handshake-phase errors surface as a distinct type from post-handshake
	// transport errors.
	hs := MapTransportError(cause, true)
	assert.True(t, IsHandshakeFailed(hs))
	assert.False(t, IsTransport(hs))
	require.ErrorIs(t, hs, cause)

	post := MapTransportError(cause, false)
	assert.True(t, IsTransport(post))
	assert.False(t, IsHandshakeFailed(post))
}

func TestMapTransportErrorPreservesAppError(t *testing.T) {
	t.Parallel()

	orig := NoAccessToken("nope")
	got := MapTransportError(orig, true)
	assert.Same(t, orig, got.(*AppError))
}

func TestClassifyStreamingError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ClassifyStreamingError("", false))
	assert.Nil(t, ClassifyStreamingError("   ", true))

	err := ClassifyStreamingError("403::Handshake denied", true)
	assert.True(t, IsHandshakeFailed(err))

	err = ClassifyStreamingError("401::Authentication invalid", false)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "401::Authentication invalid")

	err = ClassifyStreamingError("402::Unknown client", false)
	assert.True(t, IsTransport(err))
	assert.Equal(t, "402::Unknown client", err.Error())
}
