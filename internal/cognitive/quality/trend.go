package quality

import "math"

// TrendAnalyzer fits a least-squares line to the recent tail of a series.
type TrendAnalyzer struct {
	// Window is the number of trailing points fitted. Once the series has
	// at least ten points the window grows to half of it.
	Window int
	// MinPoints is the shortest series that yields a trend.
	MinPoints int
}

// collapseSlope is the magnitude below which a fit counts as flat.
const collapseSlope = 0.01

// Trend returns the slope and intercept over the analysis window. ok is
// false when the series is too short or all points share one x value.
//
// A flat fit whose window starts above 0.3 and ends below 0.1 is reported
// as a steep decline of (late-early)/window, so a sudden total collapse is
// not mistaken for stability.
func (a TrendAnalyzer) Trend(values []float64) (slope, intercept float64, ok bool) {
	if len(values) < a.MinPoints || len(values) == 0 {
		return 0, 0, false
	}

	window := a.Window
	if len(values) >= 10 {
		window = max(window, len(values)/2)
	}
	if window > len(values) {
		window = len(values)
	}
	pts := values[len(values)-window:]

	n := float64(len(pts))
	xMean := (n - 1) / 2
	var yMean float64
	for _, y := range pts {
		yMean += y
	}
	yMean /= n

	var num, den float64
	for i, y := range pts {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, 0, false
	}

	slope = num / den
	intercept = yMean - slope*xMean

	if math.Abs(slope) < collapseSlope && len(pts) >= a.MinPoints && a.MinPoints > 0 {
		early := average(pts[:a.MinPoints])
		late := average(pts[len(pts)-a.MinPoints:])
		if early > 0.3 && late < 0.1 {
			slope = (late - early) / n
		}
	}
	return slope, intercept, true
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
