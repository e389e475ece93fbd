package acquire

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

// Merge outer-joins tables on their timestamp column. Rows are joined on the
// instant the timestamp denotes, whatever its layout; unparseable keys join
// on their trimmed text and sort after every parsed one. The first-seen
// spelling of a key is kept. Columns keep their first-seen order and
// spelling (matched case-insensitively). Where several tables provide the
// same column for a key, the first non-empty value in table order wins.
// A single table is returned as is.
func Merge(tables ...dataset.Table) (dataset.Table, error) {
	for i, t := range tables {
		if keyIndex(t) < 0 {
			return dataset.Table{}, fmt.Errorf("%w: table %d has no %q column", dataset.ErrSchema, i, dataset.TimestampColumn)
		}
	}
	switch len(tables) {
	case 0:
		return dataset.Table{}, nil
	case 1:
		return tables[0], nil
	}

	out := dataset.Table{Columns: []string{dataset.TimestampColumn}}
	colPos := map[string]int{normalize(dataset.TimestampColumn): 0}
	rowPos := make(map[string]int)
	var keys []rowKey

	for _, t := range tables {
		key := keyIndex(t)

		// Map each input column to its output position.
		mapping := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			if i == key {
				mapping[i] = 0
				continue
			}
			n := normalize(c)
			pos, ok := colPos[n]
			if !ok {
				pos = len(out.Columns)
				colPos[n] = pos
				out.Columns = append(out.Columns, c)
			}
			mapping[i] = pos
		}

		for r := range t.Rows {
			cell := t.Cell(r, key)
			k := keyOf(cell)
			idx, ok := rowPos[k.id()]
			if !ok {
				idx = len(out.Rows)
				rowPos[k.id()] = idx
				keys = append(keys, k)
				out.Rows = append(out.Rows, []string{cell})
			}
			for c := range t.Columns {
				if c == key {
					continue
				}
				v := t.Cell(r, c)
				if strings.TrimSpace(v) == "" {
					continue
				}
				row := pad(out.Rows[idx], mapping[c]+1)
				if row[mapping[c]] == "" {
					row[mapping[c]] = v
				}
				out.Rows[idx] = row
			}
		}
	}

	order := make([]int, len(out.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return keys[order[i]].less(keys[order[j]])
	})
	rows := make([][]string, len(out.Rows))
	for i, idx := range order {
		rows[i] = pad(out.Rows[idx], len(out.Columns))
	}
	out.Rows = rows
	return out, nil
}

// rowKey is a join key: the parsed instant when the timestamp parses,
// otherwise its trimmed text.
type rowKey struct {
	at     time.Time
	parsed bool
	raw    string
}

func keyOf(cell string) rowKey {
	at, ok := dataset.ParseTimestamp(cell)
	return rowKey{at: at, parsed: ok, raw: strings.TrimSpace(cell)}
}

func (k rowKey) id() string {
	if k.parsed {
		return "t:" + k.at.Format(time.RFC3339Nano)
	}
	return "s:" + k.raw
}

func (k rowKey) less(o rowKey) bool {
	if k.parsed != o.parsed {
		return k.parsed
	}
	if k.parsed {
		return k.at.Before(o.at)
	}
	return k.raw < o.raw
}

func keyIndex(t dataset.Table) int {
	for i, c := range t.Columns {
		if normalize(c) == dataset.TimestampColumn {
			return i
		}
	}
	return -1
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}
