package distractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tcpQuery = "Explain TCP/IP networking"

var offTopic = []string{
	"Bread dough rises slowly overnight",
	"Gardeners prune roses during early spring",
	"Violins sound warmer than cheap guitars",
}

func newTestDetector() *Detector {
	return NewDetector(DefaultConfig(), DefaultVocabulary(), nil)
}

// ============================================================================
// Baseline
// ============================================================================

func TestSetOriginalQuery(t *testing.T) {
	d := newTestDetector()

	d.SetOriginalQuery("   ")
	assert.False(t, d.HasBaseline())

	d.SetOriginalQuery("ok")
	assert.False(t, d.HasBaseline(), "text without concepts must not become the baseline")

	d.SetOriginalQuery(tcpQuery)
	require.True(t, d.HasBaseline())
	assert.Equal(t, []string{"explain", "network"}, d.original.Texts())

	d.SetOriginalQuery("Bread dough rises slowly overnight")
	assert.Equal(t, []string{"explain", "network"}, d.original.Texts(), "baseline is fixed once set")
}

func TestDetect_NoBaselineIsFullyRelevant(t *testing.T) {
	d := newTestDetector()

	detected, p := d.Detect("Random thought about quantum computing")
	assert.False(t, detected)
	assert.Equal(t, KindNone, p.Kind)

	rel, ok := d.LastRelevance()
	require.True(t, ok)
	assert.Equal(t, 1.0, rel)
}

func TestRelevance_OnTopic(t *testing.T) {
	d := newTestDetector()
	d.SetOriginalQuery(tcpQuery)

	d.Detect(tcpQuery)
	rel, _ := d.LastRelevance()
	assert.InDelta(t, 0.59, rel, 1e-9)

	d.Detect(offTopic[0])
	rel, _ = d.LastRelevance()
	assert.Zero(t, rel)
}

// ============================================================================
// Patterns
// ============================================================================

func TestDetect_TangentialDrift(t *testing.T) {
	d := newTestDetector()
	d.SetOriginalQuery(tcpQuery)

	detected, _ := d.Detect(offTopic[0])
	assert.False(t, detected)
	detected, _ = d.Detect(offTopic[1])
	assert.False(t, detected)

	detected, p := d.Detect(offTopic[2])
	require.True(t, detected)
	assert.Equal(t, KindTangentialDrift, p.Kind)
	assert.Zero(t, p.AvgRelevance)
	assert.Contains(t, p.InterventionMessage(), "drifted from the original topic")
}

func TestDetect_DetailSpiral(t *testing.T) {
	d := newTestDetector()
	d.SetOriginalQuery("Explain gradient descent")

	detail := "Set w0 to 0.5 and w1 to 0.3 then 0.8"

	detected, _ := d.Detect(detail)
	assert.False(t, detected, "a single point cannot form a spiral")

	detected, p := d.Detect(detail)
	require.True(t, detected)
	assert.Equal(t, KindDetailSpiral, p.Kind)
	assert.InDelta(t, 1.3, p.PeakDensity, 1e-9)
	assert.Contains(t, p.InterventionMessage(), "density: 1.30")
}

func TestDetect_TopicHopping(t *testing.T) {
	d := newTestDetector()
	d.SetOriginalQuery(tcpQuery)

	d.Detect(tcpQuery)
	d.Detect(offTopic[0])
	d.Detect(tcpQuery)
	d.Detect(offTopic[1])
	detected, p := d.Detect(tcpQuery)

	require.True(t, detected)
	assert.Equal(t, KindTopicHopping, p.Kind)
	assert.Equal(t, 2, p.TopicSwitches)
	assert.Contains(t, p.InterventionMessage(), "switched topics 2 times")
}

func TestDetect_ProductiveExploration(t *testing.T) {
	d := newTestDetector()
	d.SetOriginalQuery("How do neural networks learn?")

	thoughts := []string{
		"Backpropagation adjusts neural network weights",
		"Training neural networks takes patience",
		"Deeper neural networks learn richer features",
		"Neural networks learn through backpropagation",
	}
	for _, th := range thoughts {
		detected, p := d.Detect(th)
		assert.False(t, detected, th)
		assert.Equal(t, KindNone, p.Kind, th)
	}
	for _, rel := range d.RelevanceHistory() {
		assert.GreaterOrEqual(t, rel, 0.3)
	}
}

// ============================================================================
// State
// ============================================================================

func TestHistoriesAreBounded(t *testing.T) {
	d := newTestDetector()
	for i := 0; i < 25; i++ {
		d.Detect("Bread dough rises slowly overnight")
	}
	assert.Len(t, d.RelevanceHistory(), 10)
	assert.Len(t, d.DensityHistory(), 10)
}

func TestReset(t *testing.T) {
	d := newTestDetector()
	d.SetOriginalQuery(tcpQuery)
	d.Detect(offTopic[0])

	d.Reset()
	d.Reset()

	assert.False(t, d.HasBaseline())
	assert.Empty(t, d.RelevanceHistory())
	assert.Empty(t, d.DensityHistory())
	_, ok := d.LastRelevance()
	assert.False(t, ok)
}

// ============================================================================
// Helpers
// ============================================================================

func TestDetailDensity(t *testing.T) {
	d := newTestDetector()

	assert.Zero(t, d.detailDensity(""))
	assert.InDelta(t, 0.5, d.detailDensity("TCP/IP uses snake_case names"), 1e-9)
	assert.InDelta(t, 1.3, d.detailDensity("Set w0 to 0.5 and w1 to 0.3 then 0.8"), 1e-9)
}

func TestConceptsMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"network", "network", true},
		{"neural network", "network", true},
		{"gradient descent", "descent gradient", true},
		{"learn rate", "learn speed", false},
		{"bread", "network", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, conceptsMatch(tt.a, tt.b))
		})
	}
}

func TestConceptsRelated(t *testing.T) {
	d := newTestDetector()

	assert.True(t, d.conceptsRelated("tcp/ip", "packet"))
	assert.True(t, d.conceptsRelated("optimizer", "optimization"))
	assert.False(t, d.conceptsRelated("bread", "network"))
}
