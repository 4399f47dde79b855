package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	regexpSlugStrip    = regexp.MustCompile(`[^\w\s-]`)
	regexpSlugSeparate = regexp.MustCompile(`[-\s]+`)
)

// Slugify turns s into a lowercase ASCII slug such as "random-category-string".
//
// Accented letters are decomposed and their marks dropped, anything other than
// letters, digits, underscores, hyphens and spaces is removed, and runs of
// spaces or hyphens collapse to a single hyphen.
func Slugify(s string) string {
	ascii, _, err := transform.String(transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	), s)
	if err != nil {
		ascii = s
	}

	ascii = regexpSlugStrip.ReplaceAllString(strings.ToLower(ascii), "")
	ascii = regexpSlugSeparate.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-_")
}
