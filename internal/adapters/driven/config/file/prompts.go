package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves the question rewrite and answer prompts from text
// files the user may edit. The files are seeded from the built-in
// templates on first Load. An edited file whose %s placeholders no longer
// match the built-in template is ignored in favour of the template, since
// the chat service fills placeholders positionally.
type PromptStore struct {
	dir      string
	builtin  map[string]string
	initOnce sync.Once
	initErr  error

	mu     sync.RWMutex
	loaded map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.ragbot/prompts when
// dir is empty. Nothing is written until the first Load.
func NewPromptStore(dir string, defaults map[string]string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragbot", "prompts")
	}

	builtin := make(map[string]string, len(defaults))
	for name, text := range defaults {
		builtin[name] = text
	}
	return &PromptStore{
		dir:     dir,
		builtin: builtin,
		loaded:  make(map[string]string),
	}, nil
}

// Load returns the named template. Unknown names are an error; a missing,
// unreadable or malformed file yields the built-in template.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := s.builtin[name]
	if !known {
		return "", fmt.Errorf("load prompt %q: %w", name, os.ErrNotExist)
	}

	s.initOnce.Do(s.seed)
	if s.initErr != nil {
		return builtin, nil
	}

	s.mu.RLock()
	text, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	text = s.read(name, builtin)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.loaded[name]; ok {
		return prev, nil
	}
	s.loaded[name] = text
	return text, nil
}

// Reload drops loaded templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]string)
	s.mu.Unlock()
}

// Dir is the directory holding the prompt files.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name, builtin string) string {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.L().Warn("read prompt file", zap.String("prompt", name), zap.Error(err))
		}
		return builtin
	}

	text := strings.TrimSpace(string(data))
	if got, want := placeholders(text), placeholders(builtin); got != want {
		logger.L().Warn("prompt file ignored: placeholder count changed",
			zap.String("file", s.path(name)),
			zap.Int("placeholders", got),
			zap.Int("expected", want))
		return builtin
	}
	return text
}

// placeholders counts %s verbs, ignoring escaped percent signs.
func placeholders(text string) int {
	return strings.Count(strings.ReplaceAll(text, "%%", ""), "%s")
}

// seed creates the directory, a file per built-in template and the
// README. Existing files are left alone.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": promptReadme}
	for name, text := range s.builtin {
		files[name+".txt"] = text
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("write %s: %w", file, err)
			return
		}
	}
}

const promptReadme = `# RAGbot Prompts

These files control how RAGbot rewrites follow-up questions and answers
from your documents. Edit them freely; changes apply to the next command
or a restarted chat.

- query_rewrite.txt: history (%s) then question (%s)
- rag_system.txt: history (%s), document context (%s), then question (%s)

A file whose number of %s placeholders differs from the list above is
ignored and the built-in prompt is used instead. Delete a file to get the
built-in version back on the next run.
`
