package domain

import "encoding/json"

// EventKind tags a StreamEvent.
type EventKind string

// Stream event kinds.
const (
	// EventChunk carries one generated text fragment.
	EventChunk EventKind = "chunk"

	// EventComplete terminates a successful invocation.
	EventComplete EventKind = "complete"

	// EventError terminates a failed invocation.
	EventError EventKind = "error"
)

// StreamEvent is one event produced while answering a question.
// Zero or more chunk events are followed by exactly one complete or
// error event.
type StreamEvent struct {
	Kind EventKind `json:"type"`

	// Text is the fragment for EventChunk.
	Text string `json:"text,omitempty"`

	// FullText is the aggregated answer for EventComplete.
	FullText string `json:"full_text,omitempty"`

	// Sources are the distinct document names for EventComplete. A
	// complete event always carries the key, as [] when nothing was cited.
	Sources []string `json:"sources,omitempty"`

	// RewrittenQuery is set on EventComplete when the question was reformulated.
	RewrittenQuery string `json:"rewritten_query,omitempty"`

	// Message is the user-facing failure text for EventError.
	Message string `json:"message,omitempty"`

	// Partial is the text streamed before an EventError.
	Partial string `json:"partial,omitempty"`
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Kind == EventComplete || e.Kind == EventError
}

// MarshalJSON writes sources on complete events even when empty.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	type plain StreamEvent
	if e.Kind != EventComplete {
		return json.Marshal(plain(e))
	}
	sources := e.Sources
	if sources == nil {
		sources = []string{}
	}
	return json.Marshal(struct {
		plain
		Sources []string `json:"sources"`
	}{plain(e), sources})
}

// ChunkEvent builds an EventChunk.
func ChunkEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventChunk, Text: text}
}

// CompleteEvent builds an EventComplete.
func CompleteEvent(fullText string, sources []string, rewritten string) StreamEvent {
	if sources == nil {
		sources = []string{}
	}
	return StreamEvent{Kind: EventComplete, FullText: fullText, Sources: sources, RewrittenQuery: rewritten}
}

// ErrorEvent builds an EventError.
func ErrorEvent(message, partial string) StreamEvent {
	return StreamEvent{Kind: EventError, Message: message, Partial: partial}
}

// Answer is a fully drained stream.
type Answer struct {
	Text           string   `json:"text"`
	Sources        []string `json:"sources"`
	RewrittenQuery string   `json:"rewritten_query,omitempty"`
}
