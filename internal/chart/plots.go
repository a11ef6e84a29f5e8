package chart

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/JonMunkholm/vizboard/internal/dataset"
)

const (
	barWidth     = 20
	clusterWidth = 48
	boxWidth     = 20
)

// newPlot creates a plot with the title and axis labels shared by every
// axis-based chart. X tick labels are rotated 90 degrees.
func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Add(plotter.NewGrid())
	return p
}

func checkDataset(ds *dataset.Dataset) (dataset.ColumnSets, error) {
	if ds == nil {
		return dataset.ColumnSets{}, ErrNoData
	}
	return dataset.Classify(ds), nil
}

// Histogram draws the distribution of a numerical column.
func (r *Renderer) Histogram(ds *dataset.Dataset, x string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	xs, err := numeric(ds, sets, x)
	if err != nil {
		return nil, err
	}
	rows := present(len(xs), nil, xs)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, x)
	}

	values := make(plotter.Values, len(rows))
	for i, row := range rows {
		values[i] = xs[row]
	}

	bins := r.opts.HistogramBins
	if bins == 0 {
		bins = autoBins(values)
	}
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", x, err)
	}
	h.FillColor = plotutil.Color(0)

	c := &Chart{Kind: Histogram, Title: "Histogram of " + x, Rows: len(rows)}
	for _, b := range h.Bins {
		c.Bars = append(c.Bars, Bar{Label: fmt.Sprintf("%g to %g", b.Min, b.Max), Value: b.Weight})
	}

	p := newPlot(c.Title, x, "Count")
	p.Add(h)
	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Countplot draws the frequency of each value of a categorical column, in
// order of first appearance.
func (r *Renderer) Countplot(ds *dataset.Dataset, x string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	labels, missing, err := categorical(ds, sets, x)
	if err != nil {
		return nil, err
	}
	rows := present(len(labels), [][]bool{missing})
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, x)
	}

	c := &Chart{Kind: Countplot, Title: "Countplot of " + x, Rows: len(rows)}
	c.Bars = countLabels(labels, rows)

	p := newPlot(c.Title, x, "Count")
	if err := addBars(p, c.Bars); err != nil {
		return nil, fmt.Errorf("countplot %q: %w", x, err)
	}
	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Boxplot draws the distribution of numerical y for each category of x.
func (r *Renderer) Boxplot(ds *dataset.Dataset, x, y string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	labels, missing, err := categorical(ds, sets, x)
	if err != nil {
		return nil, err
	}
	ys, err := numeric(ds, sets, y)
	if err != nil {
		return nil, err
	}
	rows := present(len(labels), [][]bool{missing}, ys)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q vs %q", ErrNoData, x, y)
	}

	c := &Chart{Kind: Boxplot, Title: fmt.Sprintf("Boxplot: %s vs %s", x, y), Rows: len(rows)}
	p := newPlot(c.Title, x, y)

	order, groups := groupValues(labels, ys, rows)
	for i, cat := range order {
		vals := groups[cat]
		b, err := plotter.NewBoxPlot(vg.Points(boxWidth), float64(i), plotter.Values(vals))
		if err != nil {
			return nil, fmt.Errorf("boxplot %q: %w", cat, err)
		}
		b.FillColor = plotutil.Color(i)
		p.Add(b)

		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		c.Bars = append(c.Bars, Bar{Label: cat, Value: stat.Quantile(0.5, stat.LinInterp, sorted, nil)})
	}
	p.NominalX(order...)

	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Barplot draws the mean of y for each category of x.
func (r *Renderer) Barplot(ds *dataset.Dataset, x, y string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	labels, missing, err := categorical(ds, sets, x)
	if err != nil {
		return nil, err
	}
	ys, err := numeric(ds, sets, y)
	if err != nil {
		return nil, err
	}
	rows := present(len(labels), [][]bool{missing}, ys)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q vs %q", ErrNoData, x, y)
	}

	c := &Chart{Kind: Barplot, Title: fmt.Sprintf("Barplot: %s vs %s", x, y), Rows: len(rows)}
	c.Bars = groupMeans(labels, ys, rows)

	p := newPlot(c.Title, x, y)
	if err := addBars(p, c.Bars); err != nil {
		return nil, fmt.Errorf("barplot %q: %w", x, err)
	}
	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Scatterplot draws one point per row.
func (r *Renderer) Scatterplot(ds *dataset.Dataset, x, y string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	xs, ys, rows, err := numericPair(ds, sets, x, y)
	if err != nil {
		return nil, err
	}

	pts := make(plotter.XYs, len(rows))
	for i, row := range rows {
		pts[i] = plotter.XY{X: xs[row], Y: ys[row]}
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatterplot: %w", err)
	}
	s.GlyphStyle.Color = plotutil.Color(0)
	s.GlyphStyle.Radius = vg.Points(2.5)

	c := &Chart{Kind: Scatterplot, Title: fmt.Sprintf("Scatterplot: %s vs %s", x, y), Rows: len(rows)}
	p := newPlot(c.Title, x, y)
	p.Add(s)
	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Lineplot draws the mean of y over equal x values, sorted by x.
func (r *Renderer) Lineplot(ds *dataset.Dataset, x, y string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	xs, ys, rows, err := numericPair(ds, sets, x, y)
	if err != nil {
		return nil, err
	}

	mx, my := xyMeans(xs, ys, rows)
	pts := make(plotter.XYs, len(mx))
	for i := range mx {
		pts[i] = plotter.XY{X: mx[i], Y: my[i]}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("lineplot: %w", err)
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1.5)
	points.Color = plotutil.Color(0)

	c := &Chart{Kind: Lineplot, Title: fmt.Sprintf("Lineplot: %s vs %s", x, y), Rows: len(rows)}
	p := newPlot(c.Title, x, y)
	p.Add(line, points)
	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// MultiBarplot draws the mean of z for each observed (x, y) pair as
// clustered bars: one cluster per x level, one colored bar per y level.
func (r *Renderer) MultiBarplot(ds *dataset.Dataset, x, y, z string) (*Chart, error) {
	sets, err := checkDataset(ds)
	if err != nil {
		return nil, err
	}
	xl, xm, err := categorical(ds, sets, x)
	if err != nil {
		return nil, err
	}
	yl, ym, err := categorical(ds, sets, y)
	if err != nil {
		return nil, err
	}
	zs, err := numeric(ds, sets, z)
	if err != nil {
		return nil, err
	}
	rows := present(len(xl), [][]bool{xm, ym}, zs)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q, %q, %q", ErrNoData, x, y, z)
	}

	xLevels, yLevels, bars := pairMeans(xl, yl, zs, rows)
	c := &Chart{Kind: MultiBarplot, Title: fmt.Sprintf("%s vs %s (mean %s)", x, y, z), Rows: len(rows), Bars: bars}

	p := newPlot(c.Title, x, "Mean "+z)
	p.Legend.Top = true

	xIndex := indexOf(xLevels)
	yIndex := indexOf(yLevels)
	width := vg.Points(clusterWidth / float64(len(yLevels)))
	mid := float64(len(yLevels)-1) / 2
	inLegend := make(map[string]bool, len(yLevels))

	for _, b := range bars {
		j := yIndex[b.Group]
		bc, err := plotter.NewBarChart(plotter.Values{b.Value}, width)
		if err != nil {
			return nil, fmt.Errorf("multivariate barplot %s/%s: %w", b.Label, b.Group, err)
		}
		bc.XMin = float64(xIndex[b.Label])
		bc.Offset = vg.Length(float64(j)-mid) * width
		bc.Color = plotutil.Color(j)
		bc.LineStyle.Width = 0
		p.Add(bc)
		if !inLegend[b.Group] {
			p.Legend.Add(b.Group, bc)
			inLegend[b.Group] = true
		}
	}
	p.NominalX(xLevels...)

	if c.PNG, err = r.encode(p); err != nil {
		return nil, err
	}
	return c, nil
}

// addBars draws one bar per entry at nominal positions.
func addBars(p *plot.Plot, bars []Bar) error {
	values := make(plotter.Values, len(bars))
	names := make([]string, len(bars))
	for i, b := range bars {
		values[i] = b.Value
		names[i] = b.Label
	}
	bc, err := plotter.NewBarChart(values, vg.Points(barWidth))
	if err != nil {
		return err
	}
	bc.Color = plotutil.Color(0)
	bc.LineStyle.Width = 0
	p.Add(bc)
	p.NominalX(names...)
	return nil
}

func numericPair(ds *dataset.Dataset, sets dataset.ColumnSets, x, y string) (xs, ys []float64, rows []int, err error) {
	if xs, err = numeric(ds, sets, x); err != nil {
		return nil, nil, nil, err
	}
	if ys, err = numeric(ds, sets, y); err != nil {
		return nil, nil, nil, err
	}
	rows = present(len(xs), nil, xs, ys)
	if len(rows) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %q vs %q", ErrNoData, x, y)
	}
	return xs, ys, rows, nil
}

func indexOf(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return m
}
