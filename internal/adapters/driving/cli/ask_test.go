package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/services"
)

func TestAskCmd_HasFlags(t *testing.T) {
	session := askCmd.Flags().Lookup("session")
	require.NotNil(t, session)
	assert.Equal(t, "s", session.Shorthand)
	assert.NotNil(t, askCmd.Flags().Lookup("save-errors"))
}

func TestAskCmd_StreamsAnswerAndSources(t *testing.T) {
	env := setupTestApp(t)
	env.upload(t, "notes.txt", serverNotes)

	out, err := runCLI(t, "", "ask", "How many cores does the build server have?")

	require.NoError(t, err)
	assert.Equal(t, "The server has 64 cores.\n\nSources: notes.txt\n", out)
}

func TestAskCmd_JoinsArguments(t *testing.T) {
	env := setupTestApp(t)
	env.upload(t, "notes.txt", serverNotes)

	out, err := runCLI(t, "", "ask", "how", "many", "cores?")

	require.NoError(t, err)
	assert.Contains(t, out, "has 64 cores.")
}

func TestAskCmd_NoDocuments(t *testing.T) {
	env := setupTestApp(t)

	out, err := runCLI(t, "", "ask", "Anything there?")

	require.NoError(t, err)
	assert.Equal(t, services.NoDocumentsMessage+"\n", out)
	assert.Zero(t, env.llm.streams)
}

func TestAskCmd_BlankQuestion(t *testing.T) {
	setupTestApp(t)

	_, err := runCLI(t, "", "ask", "   ")

	require.Error(t, err)
	assert.Equal(t, "Please enter a question.", errorText(err))
}

func TestAskCmd_GenerationFailure(t *testing.T) {
	env := setupTestApp(t)
	env.upload(t, "notes.txt", serverNotes)
	env.llm.failure = errors.New("connection reset")

	out, err := runCLI(t, "", "ask", "How many cores?")

	require.Error(t, err)
	assert.Contains(t, out, "The server has 64 cores.\n")
	assert.Contains(t, errorText(err), services.GenerationFailedMessage)
	assert.Contains(t, errorText(err), "connection reset")
}

func TestAskCmd_RecordsIntoSession(t *testing.T) {
	env := setupTestApp(t)
	env.upload(t, "notes.txt", serverNotes)
	ctx := context.Background()
	session, err := env.app.Sessions.Create(ctx, domain.LocalUserID)
	require.NoError(t, err)

	_, err = runCLI(t, "", "ask", "--session", session.ID, "How many cores?")
	require.NoError(t, err)

	stored, err := env.app.Sessions.Get(ctx, domain.LocalUserID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "How many cores?", stored.Title)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, domain.RoleUser, stored.Messages[0].Role)
	assert.Equal(t, "The server has 64 cores.", stored.Messages[1].Content)
	assert.Equal(t, []string{"notes.txt"}, stored.Messages[1].Sources)
}

func TestAskCmd_UnknownSession(t *testing.T) {
	setupTestApp(t)

	_, err := runCLI(t, "", "ask", "--session", "nope", "How many cores?")

	require.Error(t, err)
	assert.Equal(t, "Not found.", errorText(err))
}

func TestAskCmd_SaveErrors(t *testing.T) {
	env := setupTestApp(t)
	env.upload(t, "notes.txt", serverNotes)
	env.llm.failure = errors.New("rate limited")
	ctx := context.Background()

	plain, err := env.app.Sessions.Create(ctx, domain.LocalUserID)
	require.NoError(t, err)
	_, err = runCLI(t, "", "ask", "--session", plain.ID, "How many cores?")
	require.Error(t, err)

	saving, err := env.app.Sessions.Create(ctx, domain.LocalUserID)
	require.NoError(t, err)
	_, err = runCLI(t, "", "ask", "--session", saving.ID, "--save-errors", "How many cores?")
	require.Error(t, err)

	stored, err := env.app.Sessions.Get(ctx, domain.LocalUserID, plain.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)

	stored, err = env.app.Sessions.Get(ctx, domain.LocalUserID, saving.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Contains(t, stored.Messages[1].Content, services.GenerationFailedMessage)
}
