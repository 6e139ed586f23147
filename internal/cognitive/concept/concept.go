// Package concept turns free text into typed, normalized concepts and scores
// how much two concept sets overlap. Everything here is pure and deterministic:
// the same text always yields the same concepts in the same order.
package concept

// Kind tags how a concept was recognised.
type Kind int

const (
	KindSingle   Kind = iota // stemmed content word
	KindPhrase               // determiner + word
	KindCompound             // domain bigram or word-preposition-word triple
	KindAction               // action verb + object
)

// Kinds lists every concept kind in a stable order.
var Kinds = []Kind{KindSingle, KindPhrase, KindCompound, KindAction}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPhrase:
		return "phrase"
	case KindCompound:
		return "compound"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// Concept is a normalized unit of meaning. Two concepts are the same concept
// when their Text is equal, regardless of Kind.
type Concept struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// String returns the normalized text.
func (c Concept) String() string { return c.Text }

// Single builds a single-word concept.
func Single(text string) Concept { return Concept{Kind: KindSingle, Text: text} }

// Phrase builds a determiner phrase concept.
func Phrase(text string) Concept { return Concept{Kind: KindPhrase, Text: text} }

// Compound builds a compound concept.
func Compound(text string) Concept { return Concept{Kind: KindCompound, Text: text} }

// Action builds a verb-object concept.
func Action(text string) Concept { return Concept{Kind: KindAction, Text: text} }

// Set is an ordered, deduplicated sequence of concepts extracted from one text.
type Set []Concept

// Texts returns the concept texts in order.
func (s Set) Texts() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Text
	}
	return out
}

// Contains reports whether a concept with the given text is present.
func (s Set) Contains(text string) bool {
	for _, c := range s {
		if c.Text == text {
			return true
		}
	}
	return false
}

// KindDistribution returns the share of each kind in the set.
// Kinds that do not occur map to zero. An empty set yields all zeros.
func (s Set) KindDistribution() map[Kind]float64 {
	dist := make(map[Kind]float64, len(Kinds))
	for _, k := range Kinds {
		dist[k] = 0
	}
	if len(s) == 0 {
		return dist
	}
	share := 1.0 / float64(len(s))
	for _, c := range s {
		dist[c.Kind] += share
	}
	return dist
}

// dedupe keeps the first occurrence of each concept text.
func dedupe(in []Concept) Set {
	seen := make(map[string]struct{}, len(in))
	out := make(Set, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.Text]; ok {
			continue
		}
		seen[c.Text] = struct{}{}
		out = append(out, c)
	}
	return out
}
