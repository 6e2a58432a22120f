package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	RewrittenQuery string   `json:"rewritten_query,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
	Chunks    int      `json:"chunks"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	Name string `json:"name" jsonschema:"the document file name as listed by list_documents"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	Deleted string `json:"deleted"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the user's uploaded documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the names of the user's indexed documents",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its chunks from the index",
	}, s.handleDeleteDocument)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Answer(ctx, s.ports.user(), input.Question, nil)
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, AskOutput{
		Answer:         answer.Text,
		Sources:        sources,
		RewrittenQuery: answer.RewrittenQuery,
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	names, err := s.ports.Documents.List(ctx, s.ports.user())
	if err != nil {
		return nil, ListDocumentsOutput{}, toolError(err)
	}
	if names == nil {
		names = []string{}
	}

	out := ListDocumentsOutput{Documents: names, Count: len(names)}
	// Chunk counts are informational; a backend that cannot count reports 0.
	if stats, err := s.ports.Documents.Stats(ctx, s.ports.user()); err == nil {
		out.Chunks = stats.Chunks
	}
	return nil, out, nil
}

func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	if input.Name == "" {
		return nil, DeleteDocumentOutput{}, errors.New("name is required")
	}
	if err := s.ports.Documents.Delete(ctx, s.ports.user(), input.Name); err != nil {
		return nil, DeleteDocumentOutput{}, toolError(err)
	}
	return nil, DeleteDocumentOutput{Deleted: input.Name}, nil
}

// toolError replaces internal detail with the message a user should see.
func toolError(err error) error {
	return errors.New(domain.UserMessage(err))
}
