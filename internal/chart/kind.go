package chart

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/vizboard/internal/dataset"
)

// Kind is one of the eight supported chart variants.
type Kind int

const (
	Histogram Kind = iota
	Countplot
	Boxplot
	Barplot
	Scatterplot
	Lineplot
	MultiBarplot
	PieChart
)

// ArgSpec describes one column argument of a chart kind.
type ArgSpec struct {
	Role  string
	Type  dataset.ColumnType
	Label string
}

type kindInfo struct {
	label string
	slug  string
	args  []ArgSpec
}

var kinds = [...]kindInfo{
	Histogram: {
		label: "Histogram (1 Num)",
		slug:  "histogram",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Numerical, Label: "Select Numerical Column"},
		},
	},
	Countplot: {
		label: "Countplot (1 Cat)",
		slug:  "countplot",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Categorical, Label: "Select Categorical Column"},
		},
	},
	Boxplot: {
		label: "Boxplot (Cat vs Num)",
		slug:  "boxplot",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Categorical, Label: "Select Categorical Column"},
			{Role: "y", Type: dataset.Numerical, Label: "Select Numerical Column"},
		},
	},
	Barplot: {
		label: "Barplot (Cat vs Num)",
		slug:  "barplot",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Categorical, Label: "Select Categorical Column"},
			{Role: "y", Type: dataset.Numerical, Label: "Select Numerical Column"},
		},
	},
	Scatterplot: {
		label: "Scatterplot (Num vs Num)",
		slug:  "scatterplot",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Numerical, Label: "Select X Numerical Column"},
			{Role: "y", Type: dataset.Numerical, Label: "Select Y Numerical Column"},
		},
	},
	Lineplot: {
		label: "Lineplot (Num vs Num)",
		slug:  "lineplot",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Numerical, Label: "Select X Numerical Column"},
			{Role: "y", Type: dataset.Numerical, Label: "Select Y Numerical Column"},
		},
	},
	MultiBarplot: {
		label: "Multivariate Barplot (Cat, Cat, Num)",
		slug:  "multibarplot",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Categorical, Label: "Select 1st Categorical Column"},
			{Role: "y", Type: dataset.Categorical, Label: "Select 2nd Categorical Column"},
			{Role: "z", Type: dataset.Numerical, Label: "Select Numerical Column"},
		},
	},
	PieChart: {
		label: "Pie Chart (1 Cat)",
		slug:  "pie",
		args: []ArgSpec{
			{Role: "x", Type: dataset.Categorical, Label: "Select Categorical Column"},
		},
	},
}

// Kinds returns every kind in selector order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i := range kinds {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kinds)
}

// Label is the human-readable selector text.
func (k Kind) Label() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].label
}

// Slug is the stable identifier used in forms and JSON.
func (k Kind) Slug() string {
	if !k.Valid() {
		return ""
	}
	return kinds[k].slug
}

func (k Kind) String() string {
	return k.Slug()
}

// Args returns the column arguments the kind requires, in order.
func (k Kind) Args() []ArgSpec {
	if !k.Valid() {
		return nil
	}
	return append([]ArgSpec(nil), kinds[k].args...)
}

// Arity is the number of column arguments.
func (k Kind) Arity() int {
	if !k.Valid() {
		return 0
	}
	return len(kinds[k].args)
}

// ParseKind resolves a slug or label to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for i, info := range kinds {
		if strings.EqualFold(s, info.slug) || s == info.label {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText encodes the kind as its slug.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.Slug()), nil
}

// UnmarshalText decodes a slug.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
