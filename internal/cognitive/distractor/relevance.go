package distractor

import (
	"strings"
	"unicode"

	"github.com/normanking/metamonitor/internal/cognitive/concept"
)

const (
	matchBonus     = 0.15
	relatedBonus   = 0.1
	relevanceFloor = 0.3
)

// relevanceScore scores how well current stays on the original concepts.
func (d *Detector) relevanceScore(current, original concept.Set) float64 {
	if len(current) == 0 || len(original) == 0 {
		return 0
	}

	base := concept.Similarity(current, original)

	matched := 0
	for _, o := range original {
		for _, c := range current {
			if conceptsMatch(o.Text, c.Text) {
				matched++
				break
			}
		}
	}

	related := 0
	for _, o := range original {
		for _, c := range current {
			if !conceptsMatch(o.Text, c.Text) && d.conceptsRelated(o.Text, c.Text) {
				related++
			}
		}
	}

	ratio := float64(matched) / float64(min(len(original), 3))
	score := 0.4*base +
		0.3*(matchBonus*float64(matched)) +
		0.2*(relatedBonus*float64(related)) +
		0.1*ratio

	if matched > 0 || base > 0.2 {
		score = max(score, relevanceFloor)
	}
	return min(score, 1)
}

// conceptsMatch is true for equal texts, containment, or more than half of
// the shorter text's words shared.
func conceptsMatch(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	wa, wb := wordSet(a), wordSet(b)
	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	smaller := min(len(wa), len(wb))
	return shared > 0 && float64(shared)/float64(smaller) > 0.5
}

func (d *Detector) conceptsRelated(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)

	for _, rel := range d.vocab.Relationships {
		if !strings.Contains(a, rel.Concept) && !strings.Contains(b, rel.Concept) {
			continue
		}
		for _, term := range rel.Related {
			if strings.Contains(a, term) || strings.Contains(b, term) {
				return true
			}
		}
	}

	wa, wb := longWords(a), longWords(b)
	for _, x := range wa {
		for _, y := range wb {
			if len(x) > 4 && len(y) > 4 {
				n := max(min(len(x), len(y))*2/3, 4)
				if x[:n] == y[:n] {
					return true
				}
			}
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// longWords returns the whitespace words longer than three bytes.
func longWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// detailDensity weighs detail indicators, technical tokens and numbers
// (twice) against the whitespace word count.
func (d *Detector) detailDensity(thought string) float64 {
	words := strings.Fields(thought)
	if len(words) == 0 {
		return 0
	}

	total := 0
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsNumber) >= 0 {
			total += 2
		}
		if isTechnical(w) {
			total++
		}
		if d.isDetailWord(w) {
			total++
		}
	}
	return float64(total) / float64(len(words))
}

// isTechnical flags identifiers and acronyms: words with '_' or '-', or
// longer words with no lowercase letters.
func isTechnical(w string) bool {
	if strings.ContainsAny(w, "_-") {
		return true
	}
	if len(w) <= 2 {
		return false
	}
	for _, r := range w {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func (d *Detector) isDetailWord(w string) bool {
	lw := strings.ToLower(w)
	for _, ind := range d.vocab.DetailIndicators {
		if strings.Contains(lw, ind) {
			return true
		}
	}
	return false
}
