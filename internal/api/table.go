package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// IDField is the identifier column of every central API resource.
const IDField = "id"

// Row is one JSON object from a response.
type Row map[string]any

// String renders a column value as text. Missing and null values are "".
func (r Row) String(column string) string {
	return formatValue(r[column])
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}

// Table is a decoded response: rows in response order plus the sorted
// union of their columns.
type Table struct {
	Key     string
	Columns []string
	Rows    []Row
	index   map[string]int
}

func NewTable(key string, rows []Row) *Table {
	table := &Table{Key: key, Rows: rows, index: map[string]int{}}
	columns := map[string]struct{}{}
	for i, row := range rows {
		for column := range row {
			columns[column] = struct{}{}
		}
		if id := row.String(key); id != "" {
			if _, exists := table.index[id]; !exists {
				table.index[id] = i
			}
		}
	}
	for column := range columns {
		table.Columns = append(table.Columns, column)
	}
	sort.Strings(table.Columns)
	return table
}

// DecodeTable accepts a JSON array of objects, a single object, or a
// paginated envelope carrying the objects under "results".
func DecodeTable(key string, body []byte) (*Table, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return NewTable(key, nil), nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}

	switch v := raw.(type) {
	case []any:
		return NewTable(key, toRows(v)), nil
	case map[string]any:
		if results, ok := v["results"].([]any); ok {
			return NewTable(key, toRows(results)), nil
		}
		return NewTable(key, []Row{v}), nil
	case nil:
		return NewTable(key, nil), nil
	default:
		return nil, fmt.Errorf("decode table: unexpected %T", raw)
	}
}

func toRows(items []any) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			rows = append(rows, obj)
		}
	}
	return rows
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ByID returns the first row whose key column equals id.
func (t *Table) ByID(id string) (Row, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.Rows[i], true
}

// IDs lists the key column in row order.
func (t *Table) IDs() []string {
	return t.Column(t.Key)
}

// Column lists one column's values in row order, skipping empty ones.
func (t *Table) Column(name string) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if value := row.String(name); value != "" {
			values = append(values, value)
		}
	}
	return values
}
