package sources

import (
	"sort"
	"strings"
	"unicode"
)

// Categorizer assigns categories by keyword containment over normalized
// text. Normalization lower-cases and strips everything that is not a letter
// or digit, so "Web3 HACK-A-THON!" matches the keyword "hackathon".
type Categorizer struct {
	keywords map[string][]string
	names    []string
	fallback string
}

func NewCategorizer(table map[string][]string, fallback string) *Categorizer {
	c := &Categorizer{keywords: make(map[string][]string, len(table)), fallback: fallback}
	for name, kws := range table {
		for _, kw := range kws {
			if n := normalize(kw); n != "" {
				c.keywords[name] = append(c.keywords[name], n)
			}
		}
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

// Categorize returns every category with at least one keyword contained in
// any of texts, in name order, or the fallback category when none match.
func (c *Categorizer) Categorize(texts ...string) []string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(normalize(t))
	}
	text := b.String()

	var out []string
	for _, name := range c.names {
		for _, kw := range c.keywords[name] {
			if strings.Contains(text, kw) {
				out = append(out, name)
				break
			}
		}
	}
	if len(out) == 0 && c.fallback != "" {
		out = []string{c.fallback}
	}
	return out
}

func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
