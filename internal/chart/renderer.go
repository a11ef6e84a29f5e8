// Package chart renders the eight supported chart kinds to PNG.
//
// Every renderer is a pure function of (dataset, column names): it reads the
// columns, drops rows with a missing required value, aggregates, and draws.
// Column eligibility is enforced by the caller; renderers still verify it and
// report ErrColumnType rather than drawing something misleading.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/JonMunkholm/vizboard/internal/dataset"
)

// ContentType is the media type of Chart.PNG.
const ContentType = "image/png"

const (
	DefaultWidth  = 640
	DefaultHeight = 480

	// dpi matches the resolution gonum's PNG canvas renders at.
	dpi = 96
)

var (
	// ErrColumnType is returned when a column does not have the semantic
	// type the chart argument requires.
	ErrColumnType = errors.New("column has the wrong type for this chart")

	// ErrUnknownColumn is returned when a column is not in the dataset.
	ErrUnknownColumn = dataset.ErrUnknownColumn

	// ErrNoData is returned when no row has every required value.
	ErrNoData = errors.New("no rows to plot")

	// ErrUnknownKind is returned for a kind outside the supported set.
	ErrUnknownKind = errors.New("unknown chart kind")
)

// Options configures image size and histogram binning.
type Options struct {
	// Width and Height are in pixels.
	Width  int
	Height int

	// HistogramBins fixes the bin count. Zero selects it from the data.
	HistogramBins int
}

// Chart is a rendered chart plus the numbers it was drawn from.
type Chart struct {
	Kind   Kind    `json:"kind"`
	Title  string  `json:"title"`
	Rows   int     `json:"rows"`
	Bars   []Bar   `json:"bars,omitempty"`
	Slices []Slice `json:"slices,omitempty"`
	PNG    []byte  `json:"-"`
}

// Renderer draws charts with a fixed image size.
type Renderer struct {
	opts Options
}

// NewRenderer returns a Renderer, filling zero sizes with defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.HistogramBins < 0 {
		opts.HistogramBins = 0
	}
	return &Renderer{opts: opts}
}

// Options returns the effective options.
func (r *Renderer) Options() Options {
	return r.opts
}

func (r *Renderer) size() (vg.Length, vg.Length) {
	return vg.Length(r.opts.Width) * vg.Inch / dpi, vg.Length(r.opts.Height) * vg.Inch / dpi
}

// encode writes a gonum plot as PNG at the renderer's size.
func (r *Renderer) encode(p *plot.Plot) ([]byte, error) {
	w, h := r.size()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("create plot writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write plot: %w", err)
	}
	return buf.Bytes(), nil
}

// numeric loads a numerical column, checking its classified type.
func numeric(ds *dataset.Dataset, sets dataset.ColumnSets, name string) ([]float64, error) {
	if err := requireType(sets, name, dataset.Numerical); err != nil {
		return nil, err
	}
	return ds.Floats(name)
}

// categorical loads a categorical column and its missing mask.
func categorical(ds *dataset.Dataset, sets dataset.ColumnSets, name string) ([]string, []bool, error) {
	if err := requireType(sets, name, dataset.Categorical); err != nil {
		return nil, nil, err
	}
	return ds.Labels(name)
}

func requireType(sets dataset.ColumnSets, name string, want dataset.ColumnType) error {
	if !sets.Has(name) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if got := sets.TypeOf(name); got != want {
		return fmt.Errorf("%w: %q is %s, want %s", ErrColumnType, name, got, want)
	}
	return nil
}
