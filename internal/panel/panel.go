// Package panel manages the eight chart slots shown for a dataset. Each slot
// holds a chart kind and a column selection that is always valid for that
// kind against the dataset's column sets.
package panel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/dataset"
)

// Count is the fixed number of panels.
const Count = 8

var (
	// ErrPanelIndex is returned for an index outside [0, Count).
	ErrPanelIndex = errors.New("panel index out of range")

	// ErrIneligibleColumn is returned when a submitted column is not in the
	// set its argument position requires.
	ErrIneligibleColumn = errors.New("column not eligible for this chart argument")
)

// Panel is one slot's current configuration.
type Panel struct {
	Index   int        `json:"index"`
	Kind    chart.Kind `json:"kind"`
	Columns []string   `json:"columns"`
}

// Title is the display heading of the panel.
func (p Panel) Title() string {
	return fmt.Sprintf("Chart Slot %d", p.Index+1)
}

// Selection is a requested change to a panel. Empty column entries keep the
// current value.
type Selection struct {
	Kind    chart.Kind
	Columns []string
}

// Renderer draws charts. *chart.Renderer satisfies it.
type Renderer interface {
	Histogram(ds *dataset.Dataset, x string) (*chart.Chart, error)
	Countplot(ds *dataset.Dataset, x string) (*chart.Chart, error)
	Boxplot(ds *dataset.Dataset, x, y string) (*chart.Chart, error)
	Barplot(ds *dataset.Dataset, x, y string) (*chart.Chart, error)
	Scatterplot(ds *dataset.Dataset, x, y string) (*chart.Chart, error)
	Lineplot(ds *dataset.Dataset, x, y string) (*chart.Chart, error)
	MultiBarplot(ds *dataset.Dataset, x, y, z string) (*chart.Chart, error)
	PieChart(ds *dataset.Dataset, x string) (*chart.Chart, error)
}

// Result is the outcome of rendering a panel: either a chart or a message
// explaining why there is none.
type Result struct {
	Chart   *chart.Chart
	Message string
}

// Defaults returns the first eligible column for each argument of kind.
// Arguments whose set is empty get "".
func Defaults(kind chart.Kind, sets dataset.ColumnSets) []string {
	args := kind.Args()
	cols := make([]string, len(args))
	for i, a := range args {
		cols[i], _ = sets.First(a.Type)
	}
	return cols
}

// Options returns the columns selectable for argument arg of kind.
func Options(kind chart.Kind, arg int, sets dataset.ColumnSets) []string {
	args := kind.Args()
	if arg < 0 || arg >= len(args) {
		return nil
	}
	return sets.Of(args[arg].Type)
}

// Eligible reports whether every argument of kind has at least one column.
func Eligible(kind chart.Kind, sets dataset.ColumnSets) bool {
	if !kind.Valid() {
		return false
	}
	for _, a := range kind.Args() {
		if sets.Count(a.Type) == 0 {
			return false
		}
	}
	return true
}

// Unavailable explains why kind cannot be drawn with sets, or returns "" if
// every argument has at least one eligible column.
func Unavailable(kind chart.Kind, sets dataset.ColumnSets) string {
	for _, a := range kind.Args() {
		if sets.Count(a.Type) == 0 {
			return fmt.Sprintf("No eligible %s columns for %s.", a.Type, kind.Label())
		}
	}
	return ""
}

// Board holds the panels for one dataset. It is not safe for concurrent use;
// callers serialize access per session.
type Board struct {
	sets   dataset.ColumnSets
	panels [Count]Panel
}

// NewBoard creates Count panels, each set to the first kind with its default
// columns.
func NewBoard(sets dataset.ColumnSets) *Board {
	b := &Board{sets: sets}
	first := chart.Kinds()[0]
	for i := range b.panels {
		b.panels[i] = Panel{Index: i, Kind: first, Columns: Defaults(first, sets)}
	}
	return b
}

// Sets returns the column sets the board validates against.
func (b *Board) Sets() dataset.ColumnSets {
	return b.sets
}

// Panel returns a copy of panel i.
func (b *Board) Panel(i int) (Panel, error) {
	if i < 0 || i >= Count {
		return Panel{}, fmt.Errorf("%w: %d", ErrPanelIndex, i)
	}
	p := b.panels[i]
	p.Columns = append([]string(nil), p.Columns...)
	return p, nil
}

// Panels returns copies of every panel in order.
func (b *Board) Panels() []Panel {
	out := make([]Panel, Count)
	for i := range b.panels {
		out[i], _ = b.Panel(i)
	}
	return out
}

// Update applies a selection to panel i. A kind change resets the columns to
// the new kind's defaults and ignores submitted columns. Otherwise every
// non-empty submitted column must belong to its argument's set; on error the
// panel is left unchanged.
func (b *Board) Update(i int, sel Selection) error {
	if i < 0 || i >= Count {
		return fmt.Errorf("%w: %d", ErrPanelIndex, i)
	}
	if !sel.Kind.Valid() {
		return fmt.Errorf("%w: %d", chart.ErrUnknownKind, int(sel.Kind))
	}

	p := &b.panels[i]
	if sel.Kind != p.Kind {
		p.Kind = sel.Kind
		p.Columns = Defaults(sel.Kind, b.sets)
		return nil
	}

	args := p.Kind.Args()
	next := append([]string(nil), p.Columns...)
	for j, col := range sel.Columns {
		if j >= len(args) {
			break
		}
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		if !b.sets.Contains(args[j].Type, col) {
			return fmt.Errorf("%w: %q for %s argument %s (%s)",
				ErrIneligibleColumn, col, p.Kind.Label(), args[j].Role, args[j].Type)
		}
		next[j] = col
	}
	p.Columns = next
	return nil
}

// Render draws panel i. When an argument has no eligible column the result
// carries a message and the renderer is not called.
func (b *Board) Render(i int, ds *dataset.Dataset, r Renderer) (Result, error) {
	p, err := b.Panel(i)
	if err != nil {
		return Result{}, err
	}

	if msg := Unavailable(p.Kind, b.sets); msg != "" {
		return Result{Message: msg}, nil
	}
	for j, a := range p.Kind.Args() {
		if !b.sets.Contains(a.Type, p.Columns[j]) {
			return Result{}, fmt.Errorf("%w: %q for %s argument %s",
				ErrIneligibleColumn, p.Columns[j], p.Kind.Label(), a.Role)
		}
	}

	c := p.Columns
	var ch *chart.Chart
	switch p.Kind {
	case chart.Histogram:
		ch, err = r.Histogram(ds, c[0])
	case chart.Countplot:
		ch, err = r.Countplot(ds, c[0])
	case chart.Boxplot:
		ch, err = r.Boxplot(ds, c[0], c[1])
	case chart.Barplot:
		ch, err = r.Barplot(ds, c[0], c[1])
	case chart.Scatterplot:
		ch, err = r.Scatterplot(ds, c[0], c[1])
	case chart.Lineplot:
		ch, err = r.Lineplot(ds, c[0], c[1])
	case chart.MultiBarplot:
		ch, err = r.MultiBarplot(ds, c[0], c[1], c[2])
	case chart.PieChart:
		ch, err = r.PieChart(ds, c[0])
	default:
		return Result{}, fmt.Errorf("%w: %d", chart.ErrUnknownKind, int(p.Kind))
	}
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", p.Title(), err)
	}
	return Result{Chart: ch}, nil
}
