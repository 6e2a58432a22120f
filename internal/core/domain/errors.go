package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingTenant indicates an index or session operation was issued without a user ID.
	// Every tenant-scoped operation must carry one.
	ErrMissingTenant = errors.New("user id is required")

	// ErrEmptyQuestion indicates a blank question was asked.
	ErrEmptyQuestion = errors.New("question is empty")

	// Document errors.

	// ErrEmptyDocument indicates the extracted text is blank or whitespace-only.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrUnsupportedFormat indicates a file extension outside pdf, docx and txt.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// Pipeline errors.

	// ErrRetrievalBackend indicates a vector index network or service failure.
	ErrRetrievalBackend = errors.New("retrieval backend error")

	// ErrRerankUnavailable indicates the re-ranker is not configured or failed.
	// The pipeline falls back to similarity order.
	ErrRerankUnavailable = errors.New("re-ranker unavailable")

	// ErrRewriteFailed indicates the LLM failed to produce a standalone question.
	// The pipeline falls back to the original question.
	ErrRewriteFailed = errors.New("query rewrite failed")

	// ErrGenerationStream indicates a failure while streaming the answer.
	ErrGenerationStream = errors.New("generation stream failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index could not be opened.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Identity Errors.

	// ErrInvalidCredentials indicates the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailAlreadyRegistered indicates sign-up with an existing email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrEmailNotConfirmed indicates the account exists but the email is unverified.
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrWeakPassword indicates the provider rejected the password.
	ErrWeakPassword = errors.New("password does not meet requirements")

	// ErrAuthRequired indicates no signed-in identity or an expired token.
	ErrAuthRequired = errors.New("authentication required")

	// ErrIdentityUnavailable indicates the identity provider could not be reached.
	ErrIdentityUnavailable = errors.New("identity provider unavailable")
)

// DocumentError reports a per-file upload failure.
type DocumentError struct {
	FileName string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// RetrievalError reports a vector index failure.
// For upserts Expected and Stored carry the count mismatch.
type RetrievalError struct {
	Op       string
	Expected int
	Stored   int
	Err      error
}

func (e *RetrievalError) Error() string {
	if e.Op == "upsert" && e.Expected != e.Stored {
		return fmt.Sprintf("%s: stored %d of %d chunks: %v", e.Op, e.Stored, e.Expected, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() []error {
	return []error{ErrRetrievalBackend, e.Err}
}

// GenerationError reports a failed answer stream together with the
// text emitted before the failure.
type GenerationError struct {
	Partial string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGenerationStream, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationStream, e.Err}
}

// UserMessage converts an error into plain-language text for display.
// Unknown errors keep their text as a diagnostic suffix.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyDocument):
		return "The document appears to be empty."
	case errors.Is(err, ErrUnsupportedFormat):
		return "Unsupported file type. Please upload PDF, DOCX, or TXT files."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return "This email is already registered. Please sign in instead."
	case errors.Is(err, ErrEmailNotConfirmed):
		return "Please confirm your email address before signing in."
	case errors.Is(err, ErrWeakPassword):
		return "Password is too weak. Use at least 6 characters."
	case errors.Is(err, ErrEmptyQuestion):
		return "Please enter a question."
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrMissingTenant):
		return "Please sign in first."
	case errors.Is(err, ErrIdentityUnavailable):
		return "The sign-in service is unavailable. Please try again later."
	case errors.Is(err, ErrGenerationStream):
		return "An error occurred while generating the response: " + err.Error()
	case errors.Is(err, ErrNotFound):
		return "Not found."
	default:
		return "Something went wrong: " + err.Error()
	}
}
