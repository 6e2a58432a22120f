package normalisers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

type stubExtractor struct {
	exts []string
	text string
	err  error
}

func (s *stubExtractor) Extensions() []string { return s.exts }

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return s.text, s.err
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, []string{".docx", ".pdf", ".txt"}, r.Extensions())
	assert.True(t, r.Supports("report.PDF"))
	assert.True(t, r.Supports("notes.txt"))
	assert.True(t, r.Supports("memo.docx"))
	assert.False(t, r.Supports("sheet.xlsx"))
	assert.False(t, r.Supports("README"))
}

func TestRegistry_ExtractDispatchesByExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{exts: []string{".txt"}, text: "plain"})
	r.Register(&stubExtractor{exts: []string{".md"}, text: "markdown"})

	text, err := r.Extract(context.Background(), nil, "Notes.TXT")
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	text, err = r.Extract(context.Background(), nil, "readme.md")
	require.NoError(t, err)
	assert.Equal(t, "markdown", text)
}

func TestRegistry_UnsupportedFormat(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Extract(context.Background(), []byte("data"), "image.png")

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	var docErr *domain.DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "image.png", docErr.FileName)
}

func TestRegistry_ExtractorErrorCarriesFileName(t *testing.T) {
	boom := errors.New("corrupt")
	r := NewRegistry()
	r.Register(&stubExtractor{exts: []string{".txt"}, err: boom})

	_, err := r.Extract(context.Background(), nil, "broken.txt")

	assert.ErrorIs(t, err, boom)
	var docErr *domain.DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "broken.txt", docErr.FileName)
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{exts: []string{".txt"}, text: "first"})
	r.Register(&stubExtractor{exts: []string{".txt"}, text: "second"})

	text, err := r.Extract(context.Background(), nil, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}
