package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// lower builds a fresh Caser per call; a Caser is stateful and cannot be shared.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// stopWords are dropped from keyword queries. English and French, the course languages.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "has": {}, "have": {}, "her": {}, "his": {}, "how": {}, "its": {},
	"our": {}, "out": {}, "that": {}, "this": {}, "was": {}, "what": {}, "when": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {}, "from": {}, "into": {}, "about": {}, "your": {},
	"they": {}, "them": {}, "then": {}, "than": {}, "there": {}, "these": {}, "those": {},
	"les": {}, "des": {}, "une": {}, "est": {}, "pour": {}, "dans": {}, "par": {}, "sur": {},
	"avec": {}, "que": {}, "qui": {}, "pas": {}, "plus": {}, "ses": {}, "son": {}, "aux": {},
	"cette": {}, "ces": {}, "elle": {}, "ils": {}, "nous": {}, "vous": {}, "leur": {}, "mais": {},
	"comme": {}, "tout": {}, "sont": {}, "ont": {},
}

const minTermRunes = 3

// foldText lowercases and strips diacritics for loose matching.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return lower(out)
}

// queryTerms splits q into distinct folded terms of at least three runes, stop-words removed.
func queryTerms(q string) []string {
	fields := strings.FieldsFunc(foldText(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTermRunes {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// keywordScore is the share of terms found in the fragment content or tags.
func keywordScore(content string, tags []string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := foldText(content)
	foldedTags := make([]string, len(tags))
	for i, tag := range tags {
		foldedTags[i] = foldText(tag)
	}

	matched := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched++
			continue
		}
		for _, tag := range foldedTags {
			if strings.Contains(tag, term) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(terms))
}

func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]), true
}
