// Package report renders monitor signals and session status for humans
// (styled text) or machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"

	"github.com/normanking/metamonitor/internal/cognitive/monitor"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text or json)", s)
	}
}

// Entry is one analyzed thought.
type Entry struct {
	Index   int            `json:"index"`
	Thought string         `json:"thought"`
	Signal  monitor.Signal `json:"signal"`
}

// Report is the result of analyzing one transcript.
type Report struct {
	Source  string         `json:"source"`
	Session string         `json:"session,omitempty"`
	Entries []Entry        `json:"thoughts"`
	Status  monitor.Status `json:"status"`
}

// Styles defines the styling for text reports.
type Styles struct {
	Header  lipgloss.Style
	Index   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Thought lipgloss.Style
	Warning lipgloss.Style
	Good    lipgloss.Style
	Bad     lipgloss.Style
	Box     lipgloss.Style
}

func defaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Index:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Label:   r.NewStyle().Foreground(lipgloss.Color("245")),
		Value:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		Thought: r.NewStyle().Foreground(lipgloss.Color("250")),
		Warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Good:    r.NewStyle().Foreground(lipgloss.Color("82")),
		Bad:     r.NewStyle().Foreground(lipgloss.Color("196")),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
	}
}

// Renderer formats reports as text.
type Renderer struct {
	styles Styles
	width  int
}

// NewRenderer creates a text renderer. A nil lipgloss renderer uses the
// default one.
func NewRenderer(r *lipgloss.Renderer) *Renderer {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &Renderer{styles: defaultStyles(r), width: 80}
}

// SetWidth sets the width used for thought previews and the status box.
func (r *Renderer) SetWidth(w int) {
	r.width = max(w, 20)
}

// Thought renders one analyzed thought.
func (r *Renderer) Thought(e Entry) string {
	s := r.styles
	sig := e.Signal

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s %s  %s %s\n",
		s.Index.Render(fmt.Sprintf("#%d", e.Index)),
		r.phase(sig.Phase),
		s.Label.Render("circular"),
		r.score(sig.CircularScore, 0.5, true),
		s.Label.Render("relevance"),
		meter(sig.Relevance),
		r.score(sig.Relevance, 0.3, false),
		s.Label.Render("trend"),
		s.Value.Render(string(sig.QualityTrend)),
	)
	b.WriteString("   ")
	b.WriteString(s.Thought.Render(truncate(flatten(e.Thought), r.width-4)))
	b.WriteString("\n")
	if sig.HasIntervention() {
		b.WriteString("   ")
		b.WriteString(s.Warning.Render("⚠ INTERVENTION:"))
		b.WriteString(" ")
		b.WriteString(sig.Intervention)
		b.WriteString("\n")
	}
	return b.String()
}

// Status renders a session status snapshot as a box.
func (r *Renderer) Status(st monitor.Status) string {
	s := r.styles

	var b strings.Builder
	b.WriteString(s.Header.Render("SESSION STATUS"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s │ %s %s %.0f%% │ %s %s\n",
		s.Label.Render("Phase:"), r.phase(st.CurrentPhase),
		s.Label.Render("Load:"), meter(st.CognitiveLoad), st.CognitiveLoad*100,
		s.Label.Render("Thoughts:"), s.Value.Render(fmt.Sprintf("%d", st.ThoughtCount)),
	)
	q := st.QualityMetrics
	fmt.Fprintf(&b, "%s %s │ %s %s │ %s %s │ %s %s",
		s.Label.Render("Coherence:"), s.Value.Render(fmt.Sprintf("%.2f", q.Coherence)),
		s.Label.Render("Density:"), s.Value.Render(fmt.Sprintf("%.2f", q.InformationDensity)),
		s.Label.Render("Relevance:"), r.score(q.Relevance, 0.3, false),
		s.Label.Render("Trend:"), s.Value.Render(string(q.Trend)),
	)

	if len(st.InterventionHistory) == 0 {
		b.WriteString("\n")
		b.WriteString(s.Good.Render("No interventions"))
	} else {
		b.WriteString("\n")
		b.WriteString(s.Label.Render(fmt.Sprintf("Interventions (%d):", len(st.InterventionHistory))))
		for _, rec := range st.InterventionHistory {
			fmt.Fprintf(&b, "\n  %s %s %s",
				s.Index.Render(fmt.Sprintf("#%d", rec.ThoughtIndex)),
				s.Warning.Render(string(rec.Kind)),
				truncate(rec.Reason, r.width-len(rec.Kind)-12),
			)
		}
	}

	return s.Box.Width(r.width).Render(b.String())
}

// Render renders a full report: a header, every thought and the final status.
func (r *Renderer) Render(rep Report) string {
	var b strings.Builder
	title := "REASONING CHAIN"
	if rep.Source != "" {
		title += ": " + rep.Source
	}
	b.WriteString(r.styles.Header.Render(title))
	b.WriteString("\n\n")
	for _, e := range rep.Entries {
		b.WriteString(r.Thought(e))
	}
	b.WriteString("\n")
	b.WriteString(r.Status(rep.Status))
	b.WriteString("\n")
	return b.String()
}

// Write encodes rep to w in the requested format. r may be nil for JSON.
func Write(w io.Writer, rep Report, f Format, r *Renderer) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	case FormatText:
		if r == nil {
			r = NewRenderer(nil)
		}
		_, err := io.WriteString(w, r.Render(rep))
		return err
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

func (r *Renderer) phase(p monitor.Phase) string {
	if p == monitor.PhaseExploration || p == "" {
		return r.styles.Good.Render(string(monitor.PhaseExploration))
	}
	return r.styles.Bad.Render(string(p))
}

// score colours v red when it crosses alarm; highBad selects the direction.
func (r *Renderer) score(v, alarm float64, highBad bool) string {
	text := fmt.Sprintf("%.2f", v)
	if (highBad && v > alarm) || (!highBad && v < alarm) {
		return r.styles.Bad.Render(text)
	}
	return r.styles.Good.Render(text)
}

// meter draws v in [0,1] as a ten cell bar.
func meter(v float64) string {
	filled := int(min(max(v, 0), 1) * 10)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most width terminal cells, marking the cut with an
// ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var b strings.Builder
	used := 0
	state := -1
	rest := s
	var cluster string
	var w int
	for rest != "" {
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > width-1 {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	b.WriteString("…")
	return b.String()
}
