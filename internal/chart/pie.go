package chart

import (
	"bytes"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/JonMunkholm/vizboard/internal/dataset"
)

// PieChart draws one wedge per distinct value of a categorical column,
// largest first. Labels carry the share rounded to one decimal place.
func (r *Renderer) PieChart(ds *dataset.Dataset, x string) (*Chart, error) {
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

	c := &Chart{Kind: PieChart, Title: "Pie Chart of " + x, Rows: len(rows)}
	c.Slices = pieSlices(countLabels(labels, rows))

	values := make([]gochart.Value, len(c.Slices))
	for i, s := range c.Slices {
		values[i] = gochart.Value{
			Value: float64(s.Count),
			Label: fmt.Sprintf("%s %s%%", s.Label, s.Percent),
		}
	}

	pie := gochart.PieChart{
		Title:  c.Title,
		Width:  r.opts.Width,
		Height: r.opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("pie chart %q: %w", x, err)
	}
	c.PNG = buf.Bytes()
	return c, nil
}
