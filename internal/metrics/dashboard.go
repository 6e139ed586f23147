package metrics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/normanking/metamonitor/internal/cognitive/monitor"
)

// Dashboard renders collector stats for the terminal.
type Dashboard struct {
	collector *Collector
	styles    DashboardStyles
	width     int
	now       func() time.Time
}

// DashboardStyles defines the styling for the dashboard.
type DashboardStyles struct {
	Border    lipgloss.Style
	Header    lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}

// NewDashboard creates a dashboard renderer. A nil renderer uses lipgloss's
// default one.
func NewDashboard(collector *Collector, r *lipgloss.Renderer) *Dashboard {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &Dashboard{
		collector: collector,
		width:     72,
		styles:    defaultDashboardStyles(r),
		now:       time.Now,
	}
}

func defaultDashboardStyles(r *lipgloss.Renderer) DashboardStyles {
	return DashboardStyles{
		Border: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Header: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")),
		Label: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Value: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")),
		Success: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82")),
		Error: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Highlight: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
	}
}

// SetWidth sets the dashboard width.
func (d *Dashboard) SetWidth(w int) {
	d.width = w
}

// Render returns the boxed dashboard.
func (d *Dashboard) Render() string {
	stats := d.collector.Stats()

	var content strings.Builder

	content.WriteString(d.styles.Header.Render("METACOGNITION"))
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("%s %s │ %s %s │ %s %s",
		d.styles.Label.Render("Sessions:"),
		d.styles.Value.Render(fmt.Sprintf("%d", stats.Sessions)),
		d.styles.Label.Render("Thoughts:"),
		d.styles.Value.Render(fmt.Sprintf("%d", stats.Thoughts)),
		d.styles.Label.Render("Interventions:"),
		d.formatInterventions(stats),
	))
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("%s %s │ %s %s │ %s %s",
		d.styles.Label.Render("Peak circular:"),
		d.formatScore(stats.PeakCircular, 0.5),
		d.styles.Label.Render("Mean relevance:"),
		d.styles.Highlight.Render(fmt.Sprintf("%.2f", stats.MeanRelevance)),
		d.styles.Label.Render("Resets:"),
		d.styles.Value.Render(fmt.Sprintf("%d", stats.Resets)),
	))
	content.WriteString("\n")

	content.WriteString(d.styles.Label.Render("Phases:"))
	content.WriteString(" ")
	content.WriteString(d.breakdown(phaseCounts(stats.ByPhase)))
	content.WriteString("\n")

	content.WriteString(d.styles.Label.Render("Kinds:"))
	content.WriteString(" ")
	content.WriteString(d.breakdown(kindCounts(stats.ByKind)))
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("%s %s",
		d.styles.Label.Render("Last:"),
		d.styles.Value.Render(d.lastEvent(stats)),
	))
	if stats.StoreErrors > 0 {
		content.WriteString(" │ ")
		content.WriteString(d.styles.Error.Render(fmt.Sprintf("%d store errors", stats.StoreErrors)))
	}
	if stats.DroppedEvents > 0 {
		content.WriteString(" │ ")
		content.WriteString(d.styles.Error.Render(fmt.Sprintf("%d events dropped", stats.DroppedEvents)))
	}

	return d.styles.Border.Width(d.width).Render(content.String())
}

func (d *Dashboard) formatInterventions(stats Stats) string {
	text := fmt.Sprintf("%d", stats.Interventions)
	if stats.Interventions == 0 {
		return d.styles.Success.Render(text)
	}
	return d.styles.Error.Render(text)
}

func (d *Dashboard) formatScore(score, alarm float64) string {
	text := fmt.Sprintf("%.2f", score)
	if score > alarm {
		return d.styles.Error.Render(text)
	}
	return d.styles.Success.Render(text)
}

type count struct {
	key string
	n   int
}

func (d *Dashboard) breakdown(counts []count) string {
	if len(counts) == 0 {
		return d.styles.Value.Render("none")
	}
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s=%s", c.key, d.styles.Highlight.Render(fmt.Sprintf("%d", c.n)))
	}
	return strings.Join(parts, " ")
}

func (d *Dashboard) lastEvent(stats Stats) string {
	if stats.LastEvent == "" {
		return "none"
	}
	elapsed := d.now().Sub(stats.LastEventTime)
	switch {
	case elapsed < time.Second:
		return stats.LastEvent + " (now)"
	case elapsed < time.Minute:
		return fmt.Sprintf("%s (%.0fs ago)", stats.LastEvent, elapsed.Seconds())
	default:
		return fmt.Sprintf("%s (%.0fm ago)", stats.LastEvent, elapsed.Minutes())
	}
}

func phaseCounts(m map[monitor.Phase]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{string(k), n})
	}
	return sortCounts(out)
}

func kindCounts(m map[monitor.InterventionKind]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{string(k), n})
	}
	return sortCounts(out)
}

// sortCounts orders by count descending, then key.
func sortCounts(cs []count) []count {
	slices.SortFunc(cs, func(a, b count) int {
		if a.n != b.n {
			return b.n - a.n
		}
		return strings.Compare(a.key, b.key)
	})
	return cs
}
