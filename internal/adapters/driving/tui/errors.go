package tui

import "errors"

// ErrMissingConversation is returned when no conversation is provided.
var ErrMissingConversation = errors.New("tui: conversation is required")

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("tui: session service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("tui: document service is required")
