package quality

import (
	"strings"
	"time"
	"unicode"
)

// Linguistic captures surface-level writing quality, each in [0, 1].
type Linguistic struct {
	VocabularyDiversity float64 `json:"vocabulary_diversity"`
	SentenceComplexity  float64 `json:"sentence_complexity"`
	CoherenceMarkers    float64 `json:"coherence_markers"`
	GrammarQuality      float64 `json:"grammar_quality"`
}

// Content captures the substance of a thought, each in [0, 1].
type Content struct {
	InformationDensity float64 `json:"information_density"`
	ReasoningDepth     float64 `json:"reasoning_depth"`
	AbstractionLevel   float64 `json:"abstraction_level"`
	EvidenceSupport    float64 `json:"evidence_support"`
}

// Metrics is the full measurement of one thought.
type Metrics struct {
	Linguistic   Linguistic `json:"linguistic"`
	Content      Content    `json:"content"`
	ThoughtIndex int        `json:"thought_index"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Scorer computes per-thought metrics. It is stateless.
type Scorer struct {
	vocab Vocabulary
}

// NewScorer creates a scorer over the given tables.
func NewScorer(vocab Vocabulary) *Scorer {
	return &Scorer{vocab: vocab}
}

// Linguistic scores vocabulary, sentence structure, connectives and grammar.
func (s *Scorer) Linguistic(thought string) Linguistic {
	return Linguistic{
		VocabularyDiversity: vocabularyDiversity(thought),
		SentenceComplexity:  sentenceComplexity(splitSentences(thought)),
		CoherenceMarkers:    s.coherenceMarkers(thought),
		GrammarQuality:      grammarQuality(thought),
	}
}

// Content scores density, reasoning, abstraction and evidence.
func (s *Scorer) Content(thought string) Content {
	lower := strings.ToLower(thought)
	return Content{
		InformationDensity: s.informationDensity(thought, lower),
		ReasoningDepth:     s.reasoningDepth(lower),
		AbstractionLevel:   s.abstractionLevel(lower),
		EvidenceSupport:    s.evidenceSupport(thought, lower),
	}
}

// vocabularyDiversity is the type-token ratio over purely alphabetic words.
// Words carrying punctuation do not count, so "Fine." scores zero.
func vocabularyDiversity(thought string) float64 {
	var total int
	unique := make(map[string]struct{})
	for _, w := range strings.Fields(thought) {
		if !isPlainWord(w) {
			continue
		}
		total++
		unique[strings.ToLower(w)] = struct{}{}
	}
	if total == 0 {
		return 0
	}
	return float64(len(unique)) / float64(total)
}

func isPlainWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '\'' {
			return false
		}
	}
	return true
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentenceComplexity normalises the average sentence length against 20 words.
func sentenceComplexity(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	var words int
	for _, s := range sentences {
		words += len(strings.Fields(s))
	}
	avg := float64(words) / float64(len(sentences))
	return min(avg/20, 1)
}

// coherenceMarkers expects roughly one connective per 50 words.
func (s *Scorer) coherenceMarkers(thought string) float64 {
	words := len(strings.Fields(thought))
	if words == 0 {
		return 0
	}
	hits := countContained(strings.ToLower(thought), s.vocab.CoherenceMarkers)
	return min(float64(hits)/(float64(words)/50), 1)
}

func grammarQuality(thought string) float64 {
	score := 1.0
	for _, r := range thought {
		if !unicode.IsUpper(r) {
			score -= 0.1
		}
		break
	}
	if strings.Contains(thought, "...") || strings.Contains(thought, "!!!") || strings.Contains(thought, "???") {
		score -= 0.1
	}
	if strings.ContainsAny(thought, ".,") {
		lower := strings.ToLower(thought)
		for _, p := range []string{".a", ".b", ".c", ",a", ",b", ",c"} {
			if strings.Contains(lower, p) {
				score -= 0.05
			}
		}
	}
	return max(score, 0)
}

// informationDensity expects about a fifth of the words to carry content.
func (s *Scorer) informationDensity(thought, lower string) float64 {
	if len(splitSentences(thought)) == 0 {
		return 0
	}
	words := strings.Fields(thought)
	technical := 0
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsNumber) >= 0 || strings.ContainsAny(w, "_-") {
			technical++
		}
	}
	content := countContained(lower, s.vocab.ContentIndicators) + technical
	return min(float64(content)/float64(len(words))*5, 1)
}

func (s *Scorer) reasoningDepth(lower string) float64 {
	hits := countContained(lower, s.vocab.ReasoningIndicators)
	structured := (strings.Contains(lower, "if") && strings.Contains(lower, "then")) ||
		(strings.Contains(lower, "because") && strings.Contains(lower, "therefore")) ||
		(strings.Contains(lower, "given") && strings.Contains(lower, "conclude"))

	score := min(float64(hits)/5, 0.8)
	if structured {
		score += 0.2
	}
	return min(score, 1)
}

func (s *Scorer) abstractionLevel(lower string) float64 {
	abstract := countContained(lower, s.vocab.AbstractWords)
	concrete := countContained(lower, s.vocab.ConcreteWords)
	if abstract+concrete == 0 {
		return 0.5
	}
	return float64(abstract) / float64(abstract+concrete)
}

func (s *Scorer) evidenceSupport(thought, lower string) float64 {
	hits := countContained(lower, s.vocab.EvidenceIndicators)
	quantitative := strings.IndexFunc(thought, unicode.IsNumber) >= 0 ||
		strings.Contains(thought, "%") || strings.Contains(thought, "percent")

	score := min(float64(hits)/3, 0.8)
	if quantitative {
		score += 0.2
	}
	return min(score, 1)
}

// countContained counts the cues that occur anywhere in text.
func countContained(text string, cues []string) int {
	n := 0
	for _, c := range cues {
		if strings.Contains(text, c) {
			n++
		}
	}
	return n
}
