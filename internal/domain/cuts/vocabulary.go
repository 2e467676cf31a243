package cuts

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// DefaultFillers is used when no vocabulary is configured.
var DefaultFillers = []string{"um"}

// Vocabulary is an immutable set of normalized filler words.
type Vocabulary struct {
	words map[string]struct{}
}

// NewVocabulary normalizes and copies words. Entries that normalize to the
// empty string are ignored.
func NewVocabulary(words ...string) Vocabulary {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			set[n] = struct{}{}
		}
	}
	return Vocabulary{words: set}
}

func (v Vocabulary) Len() int { return len(v.words) }

func (v Vocabulary) Contains(token string) bool {
	if len(v.words) == 0 {
		return false
	}
	_, ok := v.words[Normalize(token)]
	return ok
}

// Words returns the sorted normalized entries.
func (v Vocabulary) Words() []string {
	out := make([]string, 0, len(v.words))
	for w := range v.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Normalize trims whitespace and surrounding punctuation and case-folds,
// so ASR tokens like " Um," compare equal to "um".
func Normalize(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}
