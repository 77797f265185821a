// Package match decides which cells of a bingo card a spoken transcript
// should mark. Words are reduced to snowball stems so inflected forms match
// ("synergies" hits a "synergy" cell), and multi-word phrases are found with
// an ordered search that tolerates a few interleaved filler words.
package match

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"

	"meetingbingo/internal/domain"
)

// DefaultGapTolerance is the maximum number of unmatched transcript tokens
// allowed between two consecutive phrase-word matches.
const DefaultGapTolerance = 3

// Matcher matches transcripts against card words.
type Matcher struct {
	gapTolerance int
}

// New creates a Matcher. A non-positive gap tolerance falls back to the
// default.
func New(gapTolerance int) *Matcher {
	if gapTolerance <= 0 {
		gapTolerance = DefaultGapTolerance
	}
	return &Matcher{gapTolerance: gapTolerance}
}

// FindMatches returns the cells whose word or phrase occurs in the
// transcript. Empty and free cells never match.
func (m *Matcher) FindMatches(transcript string, words domain.WordGrid) []domain.Cell {
	stems := Tokenize(transcript)
	if len(stems) == 0 {
		return nil
	}

	var cells []domain.Cell
	for row := 0; row < domain.BoardSize; row++ {
		for col := 0; col < domain.BoardSize; col++ {
			phrase := words[row][col]
			if phrase == "" || strings.EqualFold(phrase, domain.FreeCell) {
				continue
			}
			if m.containsPhrase(stems, Tokenize(phrase)) {
				cells = append(cells, domain.Cell{Row: row, Col: col})
			}
		}
	}
	return cells
}

// Tokenize lowercases the text, strips punctuation (hyphens split words, so
// "win-win" becomes two tokens), and stems every token.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	stems := make([]string, 0, len(fields))
	for _, f := range fields {
		stems = append(stems, Stem(f))
	}
	return stems
}

// Stem reduces a single lowercase token to its root form.
func Stem(token string) string {
	return english.Stem(token, false)
}

// containsPhrase reports whether the phrase stems occur in the transcript.
// A single stem matches anywhere. Multiple stems must appear in order, with
// at most gapTolerance unmatched transcript tokens between consecutive
// matches. When a gap overruns, the attempt resets; if the offending token
// happens to equal the first phrase stem, the match restarts from there.
func (m *Matcher) containsPhrase(transcript, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	if len(phrase) == 1 {
		for _, tok := range transcript {
			if tok == phrase[0] {
				return true
			}
		}
		return false
	}

	next := 0 // index of the phrase stem we are looking for
	gap := 0  // unmatched tokens since the previous phrase-stem match
	for _, tok := range transcript {
		if tok == phrase[next] {
			next++
			if next == len(phrase) {
				return true
			}
			gap = 0
			continue
		}
		if next == 0 {
			continue
		}
		gap++
		if gap > m.gapTolerance {
			if tok == phrase[0] {
				next = 1
			} else {
				next = 0
			}
			gap = 0
		}
	}
	return false
}
