package concept

import "strings"

// Extractor turns thought text into a Set. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	vocab lookup
}

// NewExtractor creates an extractor over the given vocabulary.
func NewExtractor(v Vocabulary) *Extractor {
	return &Extractor{vocab: newLookup(v)}
}

// DefaultExtractor returns an extractor over DefaultVocabulary.
func DefaultExtractor() *Extractor {
	return &Extractor{vocab: defaultLookup}
}

// Extract returns the deduplicated concepts of text in emission order:
// compounds, word-preposition-word triples, singles, determiner phrases,
// then actions. Text with no words yields an empty Set.
func (e *Extractor) Extract(text string) Set {
	tokens := Tokenize(text)
	n := len(tokens)
	if n == 0 {
		return Set{}
	}

	var out []Concept

	// domain bigrams
	for i := 0; i+1 < n; i++ {
		bigram := tokens[i] + " " + tokens[i+1]
		for _, term := range e.vocab.compounds {
			if strings.Contains(bigram, term) || strings.Contains(term, bigram) {
				out = append(out, Compound(bigram))
				break
			}
		}
	}

	for i := 0; i+1 < n; i++ {
		a, b := tokens[i], tokens[i+1]
		if !IsMeaningful(a) || !IsMeaningful(b) {
			continue
		}
		if _, ok := e.vocab.adjacent[[2]string{a, b}]; ok {
			out = append(out, Compound(Stem(a)+" "+Stem(b)))
		}
	}

	for i := 0; i+2 < n; i++ {
		a, prep, b := tokens[i], tokens[i+1], tokens[i+2]
		if has(e.vocab.prepositions, prep) && IsMeaningful(a) && IsMeaningful(b) {
			out = append(out, Compound(Stem(a)+" "+prep+" "+Stem(b)))
		}
	}

	for _, tok := range tokens {
		if has(e.vocab.stopwords, tok) || !IsMeaningful(tok) {
			continue
		}
		stem := Stem(tok)
		if covered(out, stem) {
			continue
		}
		out = append(out, Single(stem))
	}

	for i := 0; i+1 < n; i++ {
		if has(e.vocab.determiners, tokens[i]) && IsMeaningful(tokens[i+1]) {
			out = append(out, Phrase(tokens[i]+" "+Stem(tokens[i+1])))
		}
	}

	for i := 0; i+1 < n; i++ {
		tok, next := tokens[i], tokens[i+1]
		stem := Stem(tok)
		if !has(e.vocab.actionVerbs, tok) && !has(e.vocab.actionVerbs, stem) {
			continue
		}
		if IsMeaningful(next) {
			out = append(out, Action(stem+" "+Stem(next)))
		}
	}

	return dedupe(out)
}

// covered reports whether stem already appears inside a compound or phrase.
func covered(concepts []Concept, stem string) bool {
	for _, c := range concepts {
		if (c.Kind == KindCompound || c.Kind == KindPhrase) && strings.Contains(c.Text, stem) {
			return true
		}
	}
	return false
}
