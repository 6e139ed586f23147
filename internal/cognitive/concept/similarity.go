package concept

import "math"

// Similarity returns the cosine similarity of the term-frequency vectors of
// two concept sets, keyed by concept text. The result is symmetric and lies
// in [0, 1]; it is 0 when either set is empty.
func Similarity(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	tfA, keys := termFrequencies(a, nil)
	tfB, keys := termFrequencies(b, keys)

	var dot, magA, magB float64
	for _, k := range keys {
		x, y := tfA[k], tfB[k]
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return math.Min(math.Max(sim, 0), 1)
}

// termFrequencies weights each occurrence of a text by 1/len(s). keys
// accumulates the union of texts in first-seen order so sums are evaluated in
// a stable order.
func termFrequencies(s Set, keys []string) (map[string]float64, []string) {
	tf := make(map[string]float64, len(s))
	seen := make(map[string]struct{}, len(keys)+len(s))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	w := 1.0 / float64(len(s))
	for _, c := range s {
		tf[c.Text] += w
		if _, ok := seen[c.Text]; !ok {
			seen[c.Text] = struct{}{}
			keys = append(keys, c.Text)
		}
	}
	return tf, keys
}
