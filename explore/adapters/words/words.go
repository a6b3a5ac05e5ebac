package words

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// Normalizer turns free text into search tags: lowercase English stems
// without stop words, deduplicated in first-seen order.
type Normalizer struct{}

func New() Normalizer {
	return Normalizer{}
}

func (Normalizer) Norm(phrase string) []string {
	tokens := tokenRe.FindAllString(strings.ToLower(phrase), -1)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	tags := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if english.IsStopWord(t) {
			continue
		}
		stem := english.Stem(t, true)
		if stem == "" {
			continue
		}
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		tags = append(tags, stem)
	}
	return tags
}
