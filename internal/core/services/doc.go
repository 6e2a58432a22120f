// Package services implements the driving ports: the chat pipeline
// (rewrite, retrieve, re-rank, assemble, generate), document ingestion,
// sessions and sign-in.
package services
