package concept

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// minTokenLen is the shortest token kept by Tokenize, in bytes.
const minTokenLen = 3

// Tokenize splits text on Unicode word boundaries (UAX #29), lowercases each
// word and drops punctuation segments and tokens of two bytes or fewer.
func Tokenize(text string) []string {
	var tokens []string
	state := -1
	rest := text
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		if len(word) < minTokenLen || !hasAlphanumeric(word) {
			continue
		}
		tokens = append(tokens, strings.ToLower(word))
	}
	return tokens
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Stem strips one common English suffix. The first matching rule wins and
// rules never chain: -ing (len > 5), -ed (len > 4), -es (len > 4, drops the
// trailing s only), -s (len > 4, not -ss).
func Stem(token string) string {
	w := strings.ToLower(token)
	n := len(w)
	switch {
	case strings.HasSuffix(w, "ing") && n > 5:
		return w[:n-3]
	case strings.HasSuffix(w, "ed") && n > 4:
		return w[:n-2]
	case strings.HasSuffix(w, "es") && n > 4:
		return w[:n-1]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && n > 4:
		return w[:n-1]
	}
	return w
}

// IsMeaningful reports whether a token is long enough and purely alphabetic
// to stand as a concept on its own.
func IsMeaningful(token string) bool {
	if len(token) <= 3 {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// IsStopword reports whether token is in the default stop-word set.
func IsStopword(token string) bool {
	return has(defaultLookup.stopwords, strings.ToLower(token))
}

var defaultLookup = newLookup(DefaultVocabulary())
