package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("missing chat service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Documents: &mockDocumentService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: &mockDocumentService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("missing documents", func(t *testing.T) {
		ports := &Ports{Chat: &mockChatService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingDocumentService)
	})

	t.Run("sessions optional", func(t *testing.T) {
		ports := &Ports{Chat: &mockChatService{}, Documents: &mockDocumentService{}}
		assert.NoError(t, ports.Validate())
	})
}

func TestPorts_UserDefaultsToLocal(t *testing.T) {
	assert.Equal(t, domain.LocalUserID, (&Ports{}).user())
	assert.Equal(t, "alice", (&Ports{UserID: "alice"}).user())
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: &mockDocumentService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, server.RunHTTP(ctx, "127.0.0.1:0"))
}

func TestServer_Handler_RejectsMalformedRequest(t *testing.T) {
	server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: &mockDocumentService{}})
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.GreaterOrEqual(t, resp.StatusCode, 400)
}
