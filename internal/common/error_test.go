package common

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOFailure(t *testing.T) {
	base := &os.PathError{Op: "rename", Path: "/a", Err: os.ErrPermission}
	err := IOFailure(base)

	require.ErrorIs(t, err, ErrIOFailure)
	require.ErrorIs(t, err, os.ErrPermission)
	require.Equal(t, base.Error(), err.Error())
	require.Same(t, err, IOFailure(err))
	require.NoError(t, IOFailure(nil))
}

func TestKind(t *testing.T) {
	testCases := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{fmt.Errorf("folder x: %w", ErrNotFound), "NotFound"},
		{ErrAlreadyExists, "AlreadyExists"},
		{ErrInvalidDestination, "InvalidDestination"},
		{ErrInvalidMetadata, "InvalidMetadata"},
		{ErrInvalidName, "InvalidName"},
		{ErrLookupFailed, "LookupFailed"},
		{IOFailure(errors.New("disk on fire")), "IOFailure"},
		{errors.New("other"), "Unknown"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.kind, Kind(tc.err))
	}
}
