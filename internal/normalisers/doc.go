// Package normalisers provides implementations of the Extractor interface
// for the supported upload formats. Each extractor knows how to turn one
// file format into plain text.
//
// Extractors are registered with the Registry at startup, which dispatches
// by lower-cased file extension.
package normalisers
