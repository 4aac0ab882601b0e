package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapsToCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(IO, "write temp file", cause)
	require.ErrorIs(t, err, cause)
}

func TestWrapMessageIncludesKindAndReason(t *testing.T) {
	err := Codecf("decode document", errors.New("bad yaml"))
	require.Contains(t, err.Error(), "codec")
	require.Contains(t, err.Error(), "decode document")
	require.Contains(t, err.Error(), "bad yaml")
}

func TestNewHasNoCause(t *testing.T) {
	err := New("configuration error")
	require.Contains(t, err.Error(), "configuration error")
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	require.Nil(t, appErr.Cause)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "codec", Codec.String())
	require.Equal(t, "io", IO.String())
	require.Equal(t, "address", Address.String())
	require.Equal(t, "other", Other.String())
}
