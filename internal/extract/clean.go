package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}\x{2000}-\x{200B}\x{3000}]+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)

	// "12", "Page 3", "p. 4", "3/10", "3 of 10", "Page 2 sur 9", "- 4 -"
	pageNumberLine = regexp.MustCompile(`(?i)^(?:(?:page|p\.|pg\.?)\s*)?\d{1,4}(?:\s*(?:/|of|sur|de)\s*\d{1,4})?$`)
	dashedPageLine = regexp.MustCompile(`^[-–—]\s*\d{1,4}\s*[-–—]$`)

	// header/footer stamps such as "12/03/2024", "2024-03-12 10:15", "Printed on 12.03.24"
	dateStampLine = regexp.MustCompile(`(?i)^(?:(?:printed|generated|exported|imprimé|généré)\s+(?:on|le)\s+|date\s*:\s*)?(?:\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{4}-\d{2}-\d{2})(?:[ T]\d{1,2}:\d{2}(?::\d{2})?)?$`)
)

// Clean normalizes text extracted from page-oriented documents.
func Clean(text string, minLineChars int) string {
	text = stripControl(text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
		if line == "" {
			kept = append(kept, "")
			continue
		}
		if isPageNumber(line) || dateStampLine.MatchString(line) {
			continue
		}
		if utf8.RuneCountInString(line) < minLineChars {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func isPageNumber(line string) bool {
	return pageNumberLine.MatchString(line) || dashedPageLine.MatchString(line)
}

// stripControl drops control characters, keeping newlines and turning tabs into spaces.
func stripControl(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t' || r == '\r':
			return ' '
		case r == utf8.RuneError, r == '\uFEFF':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}
