package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewportSyncIsIdempotent(t *testing.T) {
	s := &fakeSurface{log: &calls{}, window: Size{800, 600}, drawable: Size{300, 150}}
	v := newViewport(s)

	size, changed := v.sync()
	require.True(t, changed)
	require.Equal(t, Size{800, 600}, size)

	size, changed = v.sync()
	require.False(t, changed)
	require.Equal(t, Size{800, 600}, size)

	require.Equal(t, []Size{{800, 600}}, s.resizes)
}

func TestViewportIgnoresEmptyWindow(t *testing.T) {
	s := &fakeSurface{log: &calls{}, window: Size{0, 0}, drawable: Size{800, 600}}
	v := newViewport(s)

	size, changed := v.sync()
	require.False(t, changed)
	require.Equal(t, Size{800, 600}, size)
	require.Empty(t, s.resizes)
}
