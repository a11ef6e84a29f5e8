package dataset

import "github.com/go-gota/gota/series"

// ColumnType is the semantic type a chart argument can require.
type ColumnType int

const (
	// Unsupported columns are never offered to any chart.
	Unsupported ColumnType = iota
	// Categorical columns hold discrete labels: text, booleans, enumerations.
	Categorical
	// Numerical columns hold integer or floating-point quantities.
	Numerical
)

func (t ColumnType) String() string {
	switch t {
	case Categorical:
		return "categorical"
	case Numerical:
		return "numerical"
	default:
		return "unsupported"
	}
}

// ColumnSets is the result of classifying a dataset. It is built once per
// dataset and only read afterwards; accessors return copies.
type ColumnSets struct {
	names       []string
	types       map[string]ColumnType
	categorical []string
	numerical   []string
}

// Classify returns the dataset's categorical and numerical sets, in column
// order. The sets are computed once when the dataset is built. Columns of
// any other type, such as workbook dates, land in neither set.
func Classify(ds *Dataset) ColumnSets {
	if ds == nil {
		return ColumnSets{}
	}
	return ds.sets
}

// classify maps detected storage types to column types. An override for a
// column position takes precedence over its storage type.
func classify(names []string, storage []series.Type, overrides map[int]ColumnType) ColumnSets {
	types := make([]ColumnType, len(names))
	for i := range names {
		if t, ok := overrides[i]; ok {
			types[i] = t
			continue
		}
		types[i] = typeOf(storage[i])
	}
	return NewColumnSets(names, types)
}

// NewColumnSets builds sets from parallel name and type slices.
func NewColumnSets(names []string, types []ColumnType) ColumnSets {
	cs := ColumnSets{
		names: append([]string(nil), names...),
		types: make(map[string]ColumnType, len(names)),
	}
	for i, name := range names {
		t := Unsupported
		if i < len(types) {
			t = types[i]
		}
		cs.types[name] = t
		switch t {
		case Categorical:
			cs.categorical = append(cs.categorical, name)
		case Numerical:
			cs.numerical = append(cs.numerical, name)
		}
	}
	return cs
}

func typeOf(t series.Type) ColumnType {
	switch t {
	case series.String, series.Bool:
		return Categorical
	case series.Int, series.Float:
		return Numerical
	default:
		return Unsupported
	}
}

// Categorical returns the categorical column names in dataset order.
func (c ColumnSets) Categorical() []string {
	return append([]string(nil), c.categorical...)
}

// Numerical returns the numerical column names in dataset order.
func (c ColumnSets) Numerical() []string {
	return append([]string(nil), c.numerical...)
}

// Of returns the columns of the given type. Unsupported returns the
// excluded columns.
func (c ColumnSets) Of(t ColumnType) []string {
	switch t {
	case Categorical:
		return c.Categorical()
	case Numerical:
		return c.Numerical()
	default:
		return c.Excluded()
	}
}

// Excluded returns columns that belong to neither set.
func (c ColumnSets) Excluded() []string {
	var out []string
	for _, name := range c.names {
		if c.types[name] == Unsupported {
			out = append(out, name)
		}
	}
	return out
}

// TypeOf reports the classified type of a column. Unknown names are Unsupported.
func (c ColumnSets) TypeOf(name string) ColumnType {
	return c.types[name]
}

// Contains reports whether name is a member of the set for t.
func (c ColumnSets) Contains(t ColumnType, name string) bool {
	if t == Unsupported {
		return false
	}
	got, ok := c.types[name]
	return ok && got == t
}

// First returns the first column of type t.
func (c ColumnSets) First(t ColumnType) (string, bool) {
	switch t {
	case Categorical:
		if len(c.categorical) > 0 {
			return c.categorical[0], true
		}
	case Numerical:
		if len(c.numerical) > 0 {
			return c.numerical[0], true
		}
	}
	return "", false
}

// Count returns the number of columns of type t.
func (c ColumnSets) Count(t ColumnType) int {
	switch t {
	case Categorical:
		return len(c.categorical)
	case Numerical:
		return len(c.numerical)
	default:
		return len(c.Excluded())
	}
}

// Has reports whether name is a column of the classified dataset.
func (c ColumnSets) Has(name string) bool {
	_, ok := c.types[name]
	return ok
}
