package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	t.Parallel()

	plain := NoAccessToken("credential refresh produced no access token")
	assert.Equal(t, "credential refresh produced no access token", plain.Error())

	cause := stderrors.New("401::Authentication invalid")
	wrapped := HandshakeFailed(cause, "transport handshake failed")
	assert.Equal(t, "transport handshake failed: 401::Authentication invalid", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodeHelpers(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err   error
		check func(error) bool
		code  ErrorCode
	}{
		"no access token":    {err: NoAccessToken("x"), check: IsNoAccessToken, code: ErrCodeNoAccessToken},
		"handshake failed":   {err: HandshakeFailed(stderrors.New("y"), "x"), check: IsHandshakeFailed, code: ErrCodeHandshakeFailed},
		"transport":          {err: Transportf("boom %d", 1), check: IsTransport, code: ErrCodeTransport},
		"no results":         {err: NoResultsf("run %s", "707"), check: IsNoResults, code: ErrCodeNoResults},
		"subscription setup": {err: SubscriptionSetup(stderrors.New("y"), "x"), check: IsSubscriptionSetup, code: ErrCodeSubscriptionSetup},
		"validation":         {err: Validation("x"), check: IsValidation, code: ErrCodeValidation},
		"internal":           {err: Internalf("x %s", "y"), check: IsInternal, code: ErrCodeInternal},
		"timeout":            {err: Timeout("x"), check: IsTimeout, code: ErrCodeTimeout},
		"canceled":           {err: Canceled("x"), check: IsCanceled, code: ErrCodeCanceled},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tc.check(tc.err))
			assert.Equal(t, tc.code, GetCode(tc.err))
		})
	}
}

func TestCodeHelpersThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := NoResults("no test queue items found")
	outer := fmt.Errorf("subscribe: %w", inner)

	assert.True(t, IsNoResults(outer))
	assert.False(t, IsTransport(outer))
	assert.Equal(t, ErrCodeNoResults, GetCode(outer))
}

func TestWrapNilCause(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Wrap(nil, ErrCodeTransport, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeTransport, "ignored %d", 1))
}

func TestValidationField(t *testing.T) {
	t.Parallel()

	err := ValidationField("channel", "channel name is required")
	require.True(t, IsValidation(err))
	assert.Equal(t, "channel", GetField(err))
	assert.Empty(t, GetField(stderrors.New("plain")))
}
