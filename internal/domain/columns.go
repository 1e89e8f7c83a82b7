package domain

// ColumnRange is a half-open [Start, End) slice over a layer's attribute
// columns, counted without the primary key and geometry columns.
type ColumnRange struct {
	Start int `json:"start" yaml:"start" validate:"gte=0"`
	End   int `json:"end" yaml:"end" validate:"gtfield=Start"`
}

// Clip bounds the range to n available columns. The result never indexes
// past n; a range starting at or after n is empty.
func (r ColumnRange) Clip(n int) (start, end int) {
	start, end = r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

// Select returns the attribute columns kept by the range. A nil range keeps
// every column. The geometry column is always retained by the reader and is
// never part of columns.
func (r *ColumnRange) Select(columns []string) []string {
	if r == nil {
		out := make([]string, len(columns))
		copy(out, columns)
		return out
	}
	start, end := r.Clip(len(columns))
	out := make([]string, end-start)
	copy(out, columns[start:end])
	return out
}
