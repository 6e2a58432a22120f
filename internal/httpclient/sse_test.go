package httpclient

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	event string
	data  string
}

func collectSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	err := ReadSSE(strings.NewReader(body), func(event, data string) error {
		events = append(events, sseEvent{event, data})
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestReadSSE(t *testing.T) {
	body := ": keep-alive\n\n" +
		"data: {\"a\":1}\n\n" +
		"event: content_block_delta\ndata: {\"b\":2}\n\n" +
		"data: line one\ndata: line two\n\n" +
		"data: [DONE]"

	events := collectSSE(t, body)

	require.Len(t, events, 4)
	assert.Equal(t, sseEvent{"", `{"a":1}`}, events[0])
	assert.Equal(t, sseEvent{"content_block_delta", `{"b":2}`}, events[1])
	assert.Equal(t, "line one\nline two", events[2].data)
	assert.Equal(t, "[DONE]", events[3].data)
}

func TestReadSSE_Stop(t *testing.T) {
	calls := 0
	err := ReadSSE(strings.NewReader("data: 1\n\ndata: 2\n\n"), func(_, _ string) error {
		calls++
		return ErrStopStream
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestReadSSE_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	err := ReadSSE(strings.NewReader("data: 1\n\n"), func(_, _ string) error { return boom })

	assert.ErrorIs(t, err, boom)
}
