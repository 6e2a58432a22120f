package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// Sentinels rendered when there is nothing to show.
const (
	NoDocumentsText = "No relevant documents found."
	NoHistoryText   = "No previous conversation."
)

// AssembledContext is the rendered input for the answer prompt.
type AssembledContext struct {
	ContextText string
	HistoryText string

	// Sources are the sorted distinct sources of the rendered candidates.
	Sources []string
}

// ContextAssembler renders ranked chunks and recent history as prompt text.
type ContextAssembler struct {
	historyTurns int
	maxChars     int
}

// NewContextAssembler creates an assembler. maxChars of zero means the
// context is unbounded.
func NewContextAssembler(historyTurns, maxChars int) *ContextAssembler {
	return &ContextAssembler{historyTurns: historyTurns, maxChars: maxChars}
}

// Assemble renders each candidate as "[Document i: source]" followed by
// its content, in the given order. Candidates that would push the text
// past the character budget are dropped, except the first.
func (a *ContextAssembler) Assemble(ranked []domain.RankedCandidate, history []domain.ConversationTurn) AssembledContext {
	used := a.fit(ranked)
	return AssembledContext{
		ContextText: renderContext(used),
		HistoryText: FormatHistory(history, a.historyTurns),
		Sources:     Sources(used),
	}
}

// fit drops trailing candidates beyond the character budget.
func (a *ContextAssembler) fit(ranked []domain.RankedCandidate) []domain.RankedCandidate {
	if a.maxChars <= 0 {
		return ranked
	}
	total := 0
	for i, c := range ranked {
		size := utf8.RuneCountInString(renderBlock(i, c))
		if i > 0 {
			size += 2
			if total+size > a.maxChars {
				return ranked[:i]
			}
		}
		total += size
	}
	return ranked
}

func renderBlock(i int, c domain.RankedCandidate) string {
	return fmt.Sprintf("[Document %d: %s]\n%s", i+1, c.Metadata.Source, c.Content)
}

func renderContext(ranked []domain.RankedCandidate) string {
	if len(ranked) == 0 {
		return NoDocumentsText
	}

	blocks := make([]string, len(ranked))
	for i, c := range ranked {
		blocks[i] = renderBlock(i, c)
	}
	return strings.Join(blocks, "\n\n")
}

// Sources returns the sorted distinct source names of ranked.
func Sources(ranked []domain.RankedCandidate) []string {
	seen := make(map[string]bool, len(ranked))
	sources := make([]string, 0, len(ranked))
	for _, c := range ranked {
		if c.Metadata.Source == "" || seen[c.Metadata.Source] {
			continue
		}
		seen[c.Metadata.Source] = true
		sources = append(sources, c.Metadata.Source)
	}
	sort.Strings(sources)
	return sources
}
