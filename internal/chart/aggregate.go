package chart

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxAutoBins caps the automatic histogram bin count.
const maxAutoBins = 100

// Bar is one bar of a bar-like chart. Group is set for multivariate bars.
type Bar struct {
	Label string  `json:"label"`
	Group string  `json:"group,omitempty"`
	Value float64 `json:"value"`
}

// Slice is one pie wedge.
type Slice struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent string `json:"percent"`
}

// present returns the indexes of rows where every mask is false and every
// float column is a number.
func present(n int, masks [][]bool, nums ...[]float64) []int {
	rows := make([]int, 0, n)
outer:
	for i := 0; i < n; i++ {
		for _, m := range masks {
			if m[i] {
				continue outer
			}
		}
		for _, v := range nums {
			if math.IsNaN(v[i]) {
				continue outer
			}
		}
		rows = append(rows, i)
	}
	return rows
}

// countLabels tallies values in first-appearance order.
func countLabels(labels []string, rows []int) []Bar {
	index := make(map[string]int)
	var out []Bar
	for _, i := range rows {
		l := labels[i]
		j, ok := index[l]
		if !ok {
			j = len(out)
			index[l] = j
			out = append(out, Bar{Label: l})
		}
		out[j].Value++
	}
	return out
}

// groupValues collects y per distinct label, keeping first-appearance order.
func groupValues(labels []string, ys []float64, rows []int) ([]string, map[string][]float64) {
	groups := make(map[string][]float64)
	var order []string
	for _, i := range rows {
		l := labels[i]
		if _, ok := groups[l]; !ok {
			order = append(order, l)
		}
		groups[l] = append(groups[l], ys[i])
	}
	return order, groups
}

// groupMeans returns the mean of y per category of x.
func groupMeans(labels []string, ys []float64, rows []int) []Bar {
	order, groups := groupValues(labels, ys, rows)
	out := make([]Bar, len(order))
	for i, l := range order {
		out[i] = Bar{Label: l, Value: stat.Mean(groups[l], nil)}
	}
	return out
}

// xyMeans averages y over equal x and returns the points sorted by x.
func xyMeans(xs, ys []float64, rows []int) (outX, outY []float64) {
	sums := make(map[float64]float64)
	counts := make(map[float64]int)
	for _, i := range rows {
		sums[xs[i]] += ys[i]
		counts[xs[i]]++
	}
	outX = make([]float64, 0, len(sums))
	for x := range sums {
		outX = append(outX, x)
	}
	sort.Float64s(outX)
	outY = make([]float64, len(outX))
	for i, x := range outX {
		outY[i] = sums[x] / float64(counts[x])
	}
	return outX, outY
}

// pairMeans groups rows by (x, y) and averages z. Levels are sorted; only
// observed pairs produce a bar.
func pairMeans(xl, yl []string, zs []float64, rows []int) (xLevels, yLevels []string, bars []Bar) {
	type key struct{ x, y string }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	xs := make(map[string]bool)
	ys := make(map[string]bool)
	for _, i := range rows {
		k := key{xl[i], yl[i]}
		sums[k] += zs[i]
		counts[k]++
		xs[k.x] = true
		ys[k.y] = true
	}
	xLevels = sortedKeys(xs)
	yLevels = sortedKeys(ys)
	for _, x := range xLevels {
		for _, y := range yLevels {
			k := key{x, y}
			if n := counts[k]; n > 0 {
				bars = append(bars, Bar{Label: x, Group: y, Value: sums[k] / float64(n)})
			}
		}
	}
	return xLevels, yLevels, bars
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// pieSlices orders counts by descending frequency, ties by first
// appearance, and attaches percentages rounded to one decimal.
func pieSlices(counts []Bar) []Slice {
	sorted := append([]Bar(nil), counts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	total := 0
	for _, c := range sorted {
		total += int(c.Value)
	}
	if total == 0 {
		return nil
	}

	hundred := decimal.NewFromInt(100)
	sum := decimal.NewFromInt(int64(total))
	out := make([]Slice, len(sorted))
	for i, c := range sorted {
		n := int(c.Value)
		pct := decimal.NewFromInt(int64(n)).Mul(hundred).Div(sum)
		out[i] = Slice{Label: c.Label, Count: n, Percent: pct.StringFixed(1)}
	}
	return out
}

// autoBins picks a histogram bin count: the larger of Sturges' rule and
// the Freedman-Diaconis rule, capped at maxAutoBins.
func autoBins(values []float64) int {
	n := len(values)
	if n < 2 {
		return 1
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	span := floats.Max(sorted) - floats.Min(sorted)
	if span == 0 {
		return 1
	}

	bins := int(math.Ceil(math.Log2(float64(n)))) + 1

	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	if iqr > 0 {
		width := 2 * iqr / math.Cbrt(float64(n))
		if fd := int(math.Ceil(span / width)); fd > bins {
			bins = fd
		}
	}
	if bins > maxAutoBins {
		bins = maxAutoBins
	}
	return bins
}
