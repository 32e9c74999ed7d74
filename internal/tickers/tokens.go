package tickers

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minSymbolLen = 2
	maxSymbolLen = 4
)

// Symbols is the set of valid ticker symbols.
type Symbols map[string]struct{}

// NewSymbols builds the union of the given symbol lists.
func NewSymbols(lists ...[]string) Symbols {
	set := Symbols{}
	for _, list := range lists {
		for _, symbol := range list {
			symbol = strings.TrimSpace(symbol)
			if symbol == "" {
				continue
			}
			set[symbol] = struct{}{}
		}
	}
	return set
}

func (s Symbols) Contains(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// Mentions returns the distinct symbols mentioned in text.
func (s Symbols) Mentions(text string) map[string]struct{} {
	found := map[string]struct{}{}
	for _, word := range strings.Fields(text) {
		word = strings.TrimPrefix(word, "$")
		if !qualifies(word) || !s.Contains(word) {
			continue
		}
		found[word] = struct{}{}
	}
	return found
}

func qualifies(word string) bool {
	n := utf8.RuneCountInString(word)
	if n < minSymbolLen || n > maxSymbolLen {
		return false
	}
	return isUpper(word)
}

// isUpper reports whether word has at least one upper-case letter and no
// lower-case ones.
func isUpper(word string) bool {
	upper := false
	for _, r := range word {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}
