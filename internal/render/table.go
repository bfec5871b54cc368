package render

import (
	"fmt"
	"sort"
	"strconv"

	"fmasearch/internal/query"
)

// Table is the tabular form of metadata query rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Rows lays rows out as a table. A named projection fixes the column order;
// otherwise every key seen is a column, sorted.
func Rows(rows []map[string]any, p query.Projection) Table {
	cols := p.Fields()
	if len(cols) == 0 {
		seen := make(map[string]struct{})
		for _, r := range rows {
			for k := range r {
				seen[k] = struct{}{}
			}
		}
		for k := range seen {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}

	t := Table{Columns: cols}
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = cell(r[c])
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
