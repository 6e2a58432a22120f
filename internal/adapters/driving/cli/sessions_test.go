package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// seedSession stores a two-turn session for the local user.
func seedSession(t *testing.T, env *testEnv) *domain.Session {
	t.Helper()
	ctx := context.Background()
	session, err := env.app.Sessions.Create(ctx, domain.LocalUserID)
	require.NoError(t, err)
	require.NoError(t, env.app.Sessions.AppendMessage(ctx, domain.LocalUserID, session.ID,
		domain.ConversationTurn{Role: domain.RoleUser, Content: "How many cores?"}))
	require.NoError(t, env.app.Sessions.AppendMessage(ctx, domain.LocalUserID, session.ID,
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: "64 cores.", Sources: []string{"notes.txt"}}))
	stored, err := env.app.Sessions.Get(ctx, domain.LocalUserID, session.ID)
	require.NoError(t, err)
	return stored
}

func TestSessionsList_Empty(t *testing.T) {
	setupTestApp(t)

	out, err := runCLI(t, "", "sessions", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No sessions yet.")
}

func TestSessionsNewAndList(t *testing.T) {
	env := setupTestApp(t)

	out, err := runCLI(t, "", "sessions", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "Created session ")

	sessions, err := env.app.Sessions.List(context.Background(), domain.LocalUserID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Contains(t, out, sessions[0].ID)

	out, err = runCLI(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, sessions[0].ID+"  "+domain.DefaultSessionTitle)
}

func TestSessionsShow(t *testing.T) {
	env := setupTestApp(t)
	session := seedSession(t, env)

	out, err := runCLI(t, "", "sessions", "show", session.ID)

	require.NoError(t, err)
	assert.Equal(t, env.app.Sessions.ExportText(session), out)
	assert.Contains(t, out, "[You]")
	assert.Contains(t, out, "[RAGbot]")
}

func TestSessionsShow_NotFound(t *testing.T) {
	setupTestApp(t)

	_, err := runCLI(t, "", "sessions", "show", "missing")

	require.Error(t, err)
	assert.Equal(t, "Not found.", errorText(err))
}

func TestSessionsExport_Markdown(t *testing.T) {
	env := setupTestApp(t)
	session := seedSession(t, env)

	out, err := runCLI(t, "", "sessions", "export", session.ID)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# How many cores?\n\n"), out)
	assert.Contains(t, out, "**RAGbot:**\n64 cores.")
}

func TestSessionsExport_TextToFile(t *testing.T) {
	env := setupTestApp(t)
	session := seedSession(t, env)
	path := filepath.Join(t.TempDir(), "chat.txt")

	out, err := runCLI(t, "", "sessions", "export", session.ID, "--format", "text", "--output", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Exported \"How many cores?\" to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, env.app.Sessions.ExportText(session), string(data))
}

func TestSessionsExport_UnknownFormat(t *testing.T) {
	env := setupTestApp(t)
	session := seedSession(t, env)

	_, err := runCLI(t, "", "sessions", "export", session.ID, "-f", "pdf")

	require.Error(t, err)
	assert.Equal(t, `Unknown format "pdf". Use markdown or text.`, errorText(err))
}

func TestSessionsImport_RoundTrip(t *testing.T) {
	env := setupTestApp(t)
	original := seedSession(t, env)
	path := filepath.Join(t.TempDir(), "chat.md")
	require.NoError(t, os.WriteFile(path, []byte(env.app.Sessions.ExportMarkdown(original)), 0600))

	out, err := runCLI(t, "", "sessions", "import", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Imported \"How many cores?\" as session ")
	assert.Contains(t, out, "(2 messages)")

	sessions, err := env.app.Sessions.List(context.Background(), domain.LocalUserID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	var imported string
	for _, s := range sessions {
		if s.ID != original.ID {
			imported = s.ID
		}
	}
	stored, err := env.app.Sessions.Get(context.Background(), domain.LocalUserID, imported)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, []string{"notes.txt"}, stored.Messages[1].Sources)
}

func TestSessionsImport_MissingFile(t *testing.T) {
	setupTestApp(t)

	_, err := runCLI(t, "", "sessions", "import", filepath.Join(t.TempDir(), "nope.md"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSessionsDelete(t *testing.T) {
	env := setupTestApp(t)
	session := seedSession(t, env)

	out, err := runCLI(t, "", "sessions", "delete", session.ID)

	require.NoError(t, err)
	assert.Equal(t, "Deleted session "+session.ID+"\n", out)
	_, err = env.app.Sessions.Get(context.Background(), domain.LocalUserID, session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionsClear(t *testing.T) {
	env := setupTestApp(t)
	seedSession(t, env)
	seedSession(t, env)

	out, err := runCLI(t, "n\n", "sessions", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = runCLI(t, "yes\n", "sessions", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 sessions")

	sessions, err := env.app.Sessions.List(context.Background(), domain.LocalUserID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
