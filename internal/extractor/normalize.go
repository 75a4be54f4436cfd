package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	hyphenBreakRe = regexp.MustCompile(`-\r?\n`)
	blankLinesRe  = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
	spacesRe      = regexp.MustCompile(`[ \t]+`)
)

// normalizeText cleans raw page text so chunk boundaries do not land on layout noise
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = hyphenBreakRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' {
			return '\n'
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
	s = spacesRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
