package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewQuestionInput(t *testing.T) {
	q := NewQuestionInput(nil)

	assert.True(t, q.Focused())
	assert.Empty(t, q.Value())
	assert.Equal(t, 60, q.Width())
}

func TestQuestionInput_Typing(t *testing.T) {
	q := NewQuestionInput(nil)

	q, _ = q.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})

	assert.Equal(t, "hi", q.Value())
	q.Reset()
	assert.Empty(t, q.Value())
}

func TestQuestionInput_SetWidthClamps(t *testing.T) {
	q := NewQuestionInput(nil)

	q.SetWidth(5)

	assert.Equal(t, 24, q.Width())
}

func TestQuestionInput_BlurAndFocus(t *testing.T) {
	q := NewQuestionInput(nil)

	q.Blur()
	assert.False(t, q.Focused())
	q.Focus()
	assert.True(t, q.Focused())
}
