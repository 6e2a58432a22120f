// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.ragbot.
//
// Adapters:
//   - PromptStore: user-editable prompt templates
//   - ConfigStore: dotted-key editing of config.toml
//   - IdentityStore: the signed-in identity, TOML-encoded
package file
