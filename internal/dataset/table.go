package dataset

// TimestampColumn is the shared time key of every table.
const TimestampColumn = "timestamp"

// Table is an untyped, string-valued tabular dataset as produced by
// acquisition. Cells are kept verbatim; the empty string is null.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row r for column index c. Short rows read as null.
func (t Table) Cell(r, c int) string {
	row := t.Rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}
