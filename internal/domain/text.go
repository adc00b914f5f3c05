package domain

import (
	"fmt"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer title-cases categorical values and folds free text,
// memoizing results per distinct input. A handful of state, biome and
// municipality names repeat across millions of rows.
//
// A TextNormalizer is not safe for concurrent use.
type TextNormalizer struct {
	caser  cases.Caser
	titles *lru.Cache[string, string]
	plain  *lru.Cache[string, string]
}

// NewTextNormalizer creates a normalizer whose caches hold up to size entries each.
func NewTextNormalizer(size int) (*TextNormalizer, error) {
	titles, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("title cache: %w", err)
	}
	plain, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("plain cache: %w", err)
	}
	return &TextNormalizer{
		caser:  cases.Title(language.BrazilianPortuguese),
		titles: titles,
		plain:  plain,
	}, nil
}

// Title trims s, collapses inner whitespace and applies title case.
func (n *TextNormalizer) Title(s string) string {
	if v, ok := n.titles.Get(s); ok {
		return v
	}
	v := n.caser.String(strings.Join(strings.Fields(s), " "))
	n.titles.Add(s, v)
	return v
}

// Plain trims s and strips its diacritics.
func (n *TextNormalizer) Plain(s string) string {
	if v, ok := n.plain.Get(s); ok {
		return v
	}
	v := StripAccents(strings.TrimSpace(s))
	n.plain.Add(s, v)
	return v
}

// StripAccents removes combining marks: "Amazônia" becomes "Amazonia".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slug folds s into a lowercase ASCII identifier for file names and keys.
func Slug(s string) string {
	s = strings.ToLower(StripAccents(strings.TrimSpace(s)))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
