package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

func TestNewConversionError(t *testing.T) {
	cause := errors.New("connection reset")
	ce := exception.UpstreamProtocol("provider", "discovery request failed", cause)

	assert.Equal(t, exception.KindUpstreamProtocol, ce.Kind)
	assert.Equal(t, "provider", ce.Module)
	assert.Equal(t, cause, ce.Unwrap())
	assert.Equal(t, "[provider] UpstreamProtocolError: discovery request failed: connection reset", ce.Error())
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("unit 2020/123: %w", exception.Precondition("resolver", "no points", nil))

	assert.True(t, errors.Is(err, exception.ErrPrecondition))
	assert.False(t, errors.Is(err, exception.ErrUpstreamProtocol))
	assert.False(t, errors.Is(errors.New("plain"), exception.ErrPrecondition))
}

func TestErrorsIsReachesCause(t *testing.T) {
	err := exception.IO("writer", "write failed", context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, exception.ErrIO))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, exception.KindDataAlignment, exception.KindOf(exception.DataAlignment("processor", "row 5", nil)))
	assert.Equal(t, exception.KindUnknown, exception.KindOf(errors.New("plain")))
	assert.Equal(t, exception.KindUnknown, exception.KindOf(nil))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, exception.IsFatal(nil))
	assert.True(t, exception.IsFatal(exception.Configuration("config", "bad dataset", nil)))
	assert.True(t, exception.IsFatal(exception.Precondition("resolver", "empty", nil)))
	assert.True(t, exception.IsFatal(fmt.Errorf("unit: %w", context.Canceled)))
	assert.False(t, exception.IsFatal(exception.UpstreamProtocol("provider", "HTTP 500", nil)))
	assert.False(t, exception.IsFatal(exception.IO("writer", "disk full", nil)))
	assert.False(t, exception.IsFatal(exception.DataAlignment("processor", "gap", nil)))
	assert.False(t, exception.IsFatal(errors.New("unclassified")))
}

func TestIsRetryableNeverRetries(t *testing.T) {
	assert.False(t, exception.IsRetryable(exception.UpstreamProtocol("provider", "HTTP 429", nil)))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "bad dataset", exception.ExtractErrorMessage(exception.Newf(exception.KindConfiguration, "config", "bad %s", "dataset")))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
