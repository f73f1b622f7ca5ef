package exporter

import (
	"math"
	"sort"
	"strconv"

	"c19pulse/pkg/contracts/domain"
)

// table is a header row plus typed cells. Cells are string, float64, int
// or nil for a null.
type table struct {
	headers []string
	rows    [][]interface{}
}

// formatFloat renders a numeric cell; null becomes an empty cell
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return formatFloat(c)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	default:
		return ""
	}
}

func numericCell(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// records converts the typed rows to CSV records
func (t table) records() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = cellString(v)
		}
		out[i] = rec
	}
	return out
}

// seriesTable lays a series out with the date column first, then every
// value column in order.
func seriesTable(s *domain.Series) table {
	rows := newSeriesRows(s)
	t := table{headers: rows.headers(), rows: make([][]interface{}, s.Len())}
	for i := range t.rows {
		t.rows[i] = rows.row(i)
	}
	return t
}

// seriesRows renders one series row at a time
type seriesRows struct {
	s       *domain.Series
	columns []string
	kinds   []domain.ColumnKind
}

func newSeriesRows(s *domain.Series) seriesRows {
	columns := s.Columns()
	kinds := make([]domain.ColumnKind, len(columns))
	for i, c := range columns {
		kinds[i], _ = s.Kind(c)
	}
	return seriesRows{s: s, columns: columns, kinds: kinds}
}

func (r seriesRows) headers() []string {
	return append([]string{r.s.DateColumn()}, r.columns...)
}

func (r seriesRows) row(i int) []interface{} {
	row := make([]interface{}, 0, len(r.columns)+1)
	row = append(row, r.s.Date(i).Format(domain.DateLayout))
	for j, c := range r.columns {
		if r.kinds[j] == domain.Text {
			v, _ := r.s.Label(c, i)
			row = append(row, v)
			continue
		}
		v, _ := r.s.Value(c, i)
		row = append(row, numericCell(v))
	}
	return row
}

func (r seriesRows) record(i int) []string {
	row := r.row(i)
	rec := make([]string, len(row))
	for j, v := range row {
		rec[j] = cellString(v)
	}
	return rec
}

func breakdownTable(b domain.Breakdown) table {
	t := table{headers: []string{"Label", "Total", "Percentage of Total", "Percentage of Total Label"}}
	for _, c := range b.Categories {
		t.rows = append(t.rows, []interface{}{c.Label, c.Count, c.Percentage, c.PercentageLabel})
	}
	return t
}

// snapshotTable flattens every snapshot into one long table, metrics first
// and then display strings, each sorted by name.
func snapshotTable(snaps map[string]domain.Snapshot) table {
	t := table{headers: []string{"Snapshot", "Date", "Field", "Value"}}
	for _, name := range sortedKeys(snaps) {
		s := snaps[name]
		date := s.Date.Format(domain.DateLayout)
		for _, field := range sortedKeys(s.Metrics) {
			t.rows = append(t.rows, []interface{}{name, date, field, numericCell(s.Metrics[field])})
		}
		for _, field := range sortedKeys(s.Display) {
			t.rows = append(t.rows, []interface{}{name, date, field, s.Display[field]})
		}
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
