package quality

// Vocabulary holds the cue-word tables behind the content and linguistic
// metrics. Every entry is matched as a lowercase substring of the thought.
type Vocabulary struct {
	CoherenceMarkers    []string
	ContentIndicators   []string
	ReasoningIndicators []string
	AbstractWords       []string
	ConcreteWords       []string
	EvidenceIndicators  []string
}

// DefaultVocabulary returns the built-in tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		CoherenceMarkers: []string{
			"therefore", "however", "moreover", "furthermore", "consequently",
			"thus", "hence", "accordingly", "nevertheless", "nonetheless",
			"meanwhile", "subsequently", "initially", "finally", "additionally",
			"specifically", "particularly", "especially", "notably", "importantly",
		},
		ContentIndicators: []string{
			"implement", "analyze", "calculate", "determine", "process",
			"system", "algorithm", "method", "approach", "strategy",
			"data", "result", "outcome", "performance", "efficiency",
			"complex", "optimal", "significant", "critical", "essential",
		},
		ReasoningIndicators: []string{
			"because", "therefore", "since", "due to", "as a result",
			"implies", "suggests", "indicates", "demonstrates", "proves",
			"if", "then", "when", "given that", "assuming",
			"consider", "analyze", "evaluate", "compare", "contrast",
		},
		AbstractWords: []string{
			"concept", "theory", "principle", "framework", "model",
			"pattern", "structure", "relationship", "system", "process",
			"abstract", "general", "universal", "fundamental", "essential",
		},
		ConcreteWords: []string{
			"example", "instance", "specific", "particular", "detail",
			"step", "implementation", "code", "function", "variable",
			"number", "data", "result", "output", "input",
		},
		EvidenceIndicators: []string{
			"shows", "demonstrates", "proves", "indicates", "suggests",
			"evidence", "data", "study", "research", "finding",
			"according to", "based on", "derived from", "supported by",
			"example", "instance", "case", "observation", "experiment",
		},
	}
}
