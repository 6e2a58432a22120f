package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
	assert.Contains(t, km.Quit.Keys(), "ctrl+c")
	assert.Contains(t, km.Send.Keys(), "enter")
	assert.Contains(t, km.NewChat.Keys(), "ctrl+n")
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("ctrl+o", km.Sessions))
	assert.True(t, Matches("k", km.Up))
	assert.False(t, Matches("q", km.Quit))
}

func TestHelpGroups(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ChatHelp(), 5)
	assert.Len(t, km.ListHelp(), 4)
	assert.Len(t, km.FullHelp(), 4)
}
