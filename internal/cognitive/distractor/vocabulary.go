package distractor

// Relationship links a domain concept to terms that count as on-topic for it.
type Relationship struct {
	Concept string
	Related []string
}

// Vocabulary holds the closed tables used for relevance and detail scoring.
type Vocabulary struct {
	Relationships    []Relationship
	DetailIndicators []string
}

// DefaultVocabulary returns the built-in tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Relationships: []Relationship{
			{"neural network", []string{"backpropagation", "gradient", "weights", "training", "layer", "neuron", "perceptron"}},
			{"backpropagation", []string{"neural", "gradient", "chain rule", "derivative", "learning"}},
			{"gradient", []string{"descent", "backpropagation", "optimization", "derivative", "learning"}},
			{"learning", []string{"training", "optimization", "gradient", "backpropagation", "neural"}},
			{"machine learning", []string{"algorithm", "model", "training", "prediction", "classification"}},
			{"deep learning", []string{"neural", "layer", "convolution", "recurrent", "transformer"}},
			{"recursion", []string{"recursive", "base case", "call stack", "self-reference"}},
			{"tcp/ip", []string{"network", "protocol", "packet", "internet", "communication"}},
			{"network", []string{"communication", "protocol", "tcp", "http", "connection"}},
		},
		DetailIndicators: []string{
			"specifically", "particularly", "exactly", "precisely",
			"detail", "detailed", "specific", "precise",
			"enumerate", "list", "itemize", "specify",
			"step", "sub-step", "point", "subpoint",
			"first", "second", "third", "fourth", "fifth",
			"1.", "2.", "3.", "4.", "5.",
			"a)", "b)", "c)", "d)", "e)",
			"1a", "1b", "1c", "2a", "2b", "2c",
			"initialize", "calculate", "compute", "apply",
			"formula", "equation", "algorithm", "procedure",
		},
	}
}
