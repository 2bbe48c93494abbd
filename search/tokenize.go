package search

import (
	"strings"
	"unicode"
)

// Mode selects how text is split into terms.
type Mode int

const (
	// Prose splits on anything that is not a letter or a digit.
	Prose Mode = iota
	// Code additionally decomposes identifiers such as foo_bar::BazQux.
	Code
)

func (m Mode) String() string {
	switch m {
	case Prose:
		return "prose"
	case Code:
		return "code"
	default:
		return "unknown"
	}
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "prose":
		return Prose, true
	case "code":
		return Code, true
	}
	return 0, false
}

// Tokenize returns the normalized terms of text in the given mode.
//
// In Code mode the result holds every Prose term of text, followed per
// identifier by the lowercased whole identifier and its sub-parts.
func Tokenize(text string, mode Mode) []string {
	if mode != Code {
		return proseTerms(text, nil)
	}

	var terms []string
	for _, raw := range identifiers(text) {
		start := len(terms)
		terms = proseTerms(raw, terms)

		parts := splitIdentifier(raw)
		if len(parts) < 2 {
			continue
		}
		seen := make(map[string]struct{}, len(terms)-start+len(parts)+1)
		for _, t := range terms[start:] {
			seen[t] = struct{}{}
		}
		extras := append([]string{strings.ToLower(strings.Trim(raw, "_:!"))}, parts...)
		for i, p := range extras {
			if i > 0 {
				p = fold(strings.ToLower(p))
			}
			if _, ok := seen[p]; ok || p == "" {
				continue
			}
			seen[p] = struct{}{}
			terms = append(terms, p)
		}
	}
	return terms
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isIdentRune(r rune) bool {
	return isWordRune(r) || r == '_' || r == ':' || r == '!'
}

func proseTerms(text string, dst []string) []string {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) }) {
		dst = append(dst, fold(strings.ToLower(f)))
	}
	return dst
}

func identifiers(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !isIdentRune(r) })
}

// splitIdentifier breaks an identifier on "::", then "_", then case
// transitions. Macro bangs are dropped.
func splitIdentifier(ident string) []string {
	ident = strings.ReplaceAll(ident, "!", "")
	var parts []string
	for _, seg := range strings.Split(ident, "::") {
		for _, word := range strings.FieldsFunc(seg, func(r rune) bool { return r == '_' || r == ':' }) {
			parts = append(parts, splitCamel(word)...)
		}
	}
	return parts
}

// splitCamel splits on lower->upper transitions and at the end of an
// acronym, so ParseHTTPRequest yields Parse, HTTP, Request.
func splitCamel(word string) []string {
	runes := []rune(word)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

// fold applies light English suffix folding so plural and progressive
// forms share a term with their stem.
func fold(term string) string {
	n := len(term)
	switch {
	case n > 4 && strings.HasSuffix(term, "ies"):
		return term[:n-3] + "y"
	case n > 6 && strings.HasSuffix(term, "ing"):
		return term[:n-3]
	case n > 3 && strings.HasSuffix(term, "s") &&
		!strings.HasSuffix(term, "ss") &&
		!strings.HasSuffix(term, "us") &&
		!strings.HasSuffix(term, "is"):
		return term[:n-1]
	}
	return term
}
