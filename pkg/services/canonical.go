package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are stripped from the end of an entity name, repeatedly,
// when canonicalising for cross-registry comparison. Longer forms come
// before their abbreviations so "public limited company" is not left as
// "public limited" after a "company" strip.
var legalSuffixes = []string{
	"limited", "ltd",
	"public limited company", "plc",
	"limited liability partnership", "llp",
	"limited partnership", "lp",
	"community interest company", "cic",
	"charitable incorporated organisation", "cio",
	"charity",
	"foundation",
	"trust",
}

var (
	nonWordPattern       = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
	spacedInitialPattern = regexp.MustCompile(`^(?:[a-z]\s+){2,}[a-z]$`)
)

// CanonicalName reduces an entity name to a comparable form: diacritics
// folded, lowercased, ampersands spelled out, punctuation dropped, legal
// suffixes stripped, and fully spaced-out initials collapsed ("k i n d"
// becomes "kind").
func CanonicalName(name string) string {
	if name == "" {
		return ""
	}
	name = strings.ToLower(foldDiacritics(name))
	name = stripLegalSuffix(name)
	if spacedInitialPattern.MatchString(name) {
		name = strings.ReplaceAll(name, " ", "")
	}
	return name
}

func foldDiacritics(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripLegalSuffix(s string) string {
	s = normalizeSpacing(strings.ReplaceAll(strings.TrimSpace(s), "&", " and "))
	changed := true
	for changed && s != "" {
		changed = false
		for _, suf := range legalSuffixes {
			if strings.HasSuffix(s, " "+suf) {
				s = normalizeSpacing(s[:len(s)-len(suf)])
				changed = true
				break
			}
		}
	}
	return s
}

func normalizeSpacing(s string) string {
	s = nonWordPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Similarity scores two canonical names in [0, 1] as the ratio of matched
// characters to total length, where matches are found greedily through
// recursive longest-common-substring splitting.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchTotal(ra, rb, 0, len(ra), 0, len(rb))) / float64(total)
}

// matchTotal counts matched runes between a[alo:ahi] and b[blo:bhi] by
// finding the longest common substring and recursing on both sides of it.
func matchTotal(a, b []rune, alo, ahi, blo, bhi int) int {
	besti, bestj, size := longestMatch(a, b, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}
	n := size
	n += matchTotal(a, b, alo, besti, blo, bestj)
	n += matchTotal(a, b, besti+size, ahi, bestj+size, bhi)
	return n
}

func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (int, int, int) {
	b2j := make(map[rune][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj, bestsize := alo, blo, 0
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
