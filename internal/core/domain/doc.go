// Package domain holds the types shared by every layer of ragbot: chunks
// and their vectors, retrieval candidates, conversation turns and
// sessions, the answer event stream, identities and provider settings.
//
// Besides the standard library it imports only google/uuid, for the
// deterministic vector IDs. Nothing in internal/ may be imported here.
package domain
