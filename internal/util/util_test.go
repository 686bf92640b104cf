package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPlainName(t *testing.T) {
	require.True(t, IsPlainName("movie.mkv"))
	require.True(t, IsPlainName("..hidden"))
	require.False(t, IsPlainName(""))
	require.False(t, IsPlainName("."))
	require.False(t, IsPlainName(".."))
	require.False(t, IsPlainName("../etc/passwd"))
	require.False(t, IsPlainName("a/b"))
	require.False(t, IsPlainName(`a\b`))
}

func TestWithin(t *testing.T) {
	require.True(t, Within("/media/queue", "/media/queue"))
	require.True(t, Within("/media/queue", "/media/queue/Show/Season 01"))
	require.True(t, Within("/media/queue/", "/media/queue/x/../y"))
	require.False(t, Within("/media/queue", "/media/queue/../movies"))
	require.False(t, Within("/media/queue", "/media/queue2"))
	require.False(t, Within("/media/queue", "/etc"))
	require.True(t, Within("/media/queue", "/media/queue/..x"))
}
