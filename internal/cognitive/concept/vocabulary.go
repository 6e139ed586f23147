package concept

// Vocabulary holds the closed word tables that drive tokenisation and
// concept extraction. DefaultVocabulary returns the tuned tables; callers may
// build their own to test or swap domains.
type Vocabulary struct {
	// Stopwords are skipped when emitting single-word concepts.
	Stopwords []string
	// CompoundTerms are domain bigrams matched by substring in either direction.
	CompoundTerms []string
	// Adjacent pairs always form a compound when both words are meaningful.
	Adjacent [][2]string
	// Prepositions join word-preposition-word compounds.
	Prepositions []string
	// Determiners open determiner phrases.
	Determiners []string
	// ActionVerbs open verb-object actions. Matched raw or stemmed.
	ActionVerbs []string
}

// DefaultVocabulary returns the built-in tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Stopwords: []string{
			"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
			"by", "from", "up", "about", "into", "through", "during", "before", "after", "above",
			"below", "between", "under", "is", "are", "was", "were", "been", "be", "have", "has",
			"had", "do", "does", "did", "will", "would", "should", "could", "may", "might", "must",
			"can",
		},
		CompoundTerms: []string{
			"neural network",
			"deep learning",
			"machine learning",
			"gradient descent",
			"back propagation",
			"chain rule",
			"learning rate",
			"activation function",
			"loss function",
			"weight update",
			"error minimization",
			"feature extraction",
		},
		Adjacent: [][2]string{
			{"neural", "network"},
			{"neural", "networks"},
			{"back", "propagation"},
			{"machine", "learning"},
		},
		Prepositions: []string{"of", "in", "on", "for", "with", "by", "to", "through"},
		Determiners:  []string{"the", "a", "an", "this", "that", "these", "those", "how", "what", "why"},
		ActionVerbs: []string{
			"understand", "understanding", "solve", "calculate", "determine", "analyze",
			"process", "need", "require", "requires", "learn", "learning", "update",
			"minimize", "improve",
		},
	}
}

// lookup is the set form of a Vocabulary.
type lookup struct {
	stopwords    map[string]struct{}
	prepositions map[string]struct{}
	determiners  map[string]struct{}
	actionVerbs  map[string]struct{}
	adjacent     map[[2]string]struct{}
	compounds    []string
}

func newLookup(v Vocabulary) lookup {
	adj := make(map[[2]string]struct{}, len(v.Adjacent))
	for _, pair := range v.Adjacent {
		adj[pair] = struct{}{}
	}
	return lookup{
		stopwords:    toSet(v.Stopwords),
		prepositions: toSet(v.Prepositions),
		determiners:  toSet(v.Determiners),
		actionVerbs:  toSet(v.ActionVerbs),
		adjacent:     adj,
		compounds:    append([]string(nil), v.CompoundTerms...),
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func has(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}
