// Package fuzzy ranks sessions against an interactive query.
package fuzzy

import (
	"slices"
	"sort"
	"strings"

	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/subinium/agf/internal/config"
	"github.com/subinium/agf/internal/parser"
)

// Options selects what text of a session takes part in matching.
type Options struct {
	// MaxSummaries is how many summaries are searched when Scope
	// is config.ScopeAll.
	MaxSummaries int
	// Scope is config.ScopeNamePath or config.ScopeAll.
	Scope string
}

// Match is one ranked session. Positions are rune offsets into
// the session's search text, ascending, for highlighting.
type Match struct {
	Index     int
	Session   parser.Session
	Score     int
	Positions []int
}

type searchSource []string

func (s searchSource) String(i int) string { return s[i] }
func (s searchSource) Len() int            { return len(s) }

// Rank filters sessions to those matching query as a
// case-insensitive subsequence and orders them by score. Equal
// scores are ordered newest first, then by input position. A
// blank query returns every session in input order.
func Rank(sessions []parser.Session, query string, opts Options) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		all := make([]Match, len(sessions))
		for i, s := range sessions {
			all[i] = Match{Index: i, Session: s}
		}
		return all
	}

	includeAll := opts.Scope == config.ScopeAll
	texts := make(searchSource, len(sessions))
	for i, s := range sessions {
		texts[i] = s.SearchText(opts.MaxSummaries, includeAll)
	}

	found := sfuzzy.FindFrom(query, texts)
	matches := make([]Match, 0, len(found))
	for _, m := range found {
		matches = append(matches, Match{
			Index:     m.Index,
			Session:   sessions[m.Index],
			Score:     m.Score,
			Positions: runeOffsets(m.Str, m.MatchedIndexes),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Session.Timestamp != b.Session.Timestamp {
			return a.Session.Timestamp > b.Session.Timestamp
		}
		return a.Index < b.Index
	})
	return matches
}

// Best returns the top-ranked match for query.
func Best(sessions []parser.Session, query string, opts Options) (Match, bool) {
	ranked := Rank(sessions, query, opts)
	if len(ranked) == 0 {
		return Match{}, false
	}
	return ranked[0], true
}

// runeOffsets converts byte offsets into s to rune offsets,
// sorted and without duplicates.
func runeOffsets(s string, byteOffsets []int) []int {
	if len(byteOffsets) == 0 {
		return nil
	}
	runeAt := make(map[int]int, len(s))
	r := 0
	for i := range s {
		runeAt[i] = r
		r++
	}
	out := make([]int, 0, len(byteOffsets))
	for _, b := range byteOffsets {
		if n, ok := runeAt[b]; ok {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
