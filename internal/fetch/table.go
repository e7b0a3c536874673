// Package fetch runs report statements against the accounting database and
// returns their results as in-memory tables.
package fetch

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Table is a tabular query result. Column names are lower-cased and cells
// hold nil, int64, float64, string, bool, time.Time or decimal.Decimal.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable builds a table, lower-casing columns and normalising every cell.
func NewTable(columns []string, rows [][]any) Table {
	t := Table{Columns: make([]string, len(columns)), Rows: make([][]any, 0, len(rows))}
	for i, col := range columns {
		t.Columns[i] = strings.ToLower(strings.TrimSpace(col))
	}
	for _, row := range rows {
		t.Rows = append(t.Rows, normalizeRow(row))
	}
	return t
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Index returns the position of col or -1.
func (t Table) Index(col string) int {
	col = strings.ToLower(col)
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Value returns the raw cell, or nil when row or column are out of range.
func (t Table) Value(row int, col string) any {
	idx := t.Index(col)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][idx]
}

// Scalar returns the first cell of the first row.
func (t Table) Scalar() any {
	if len(t.Rows) == 0 || len(t.Rows[0]) == 0 {
		return nil
	}
	return t.Rows[0][0]
}

// NullFloat converts a cell to a nullable float.
func (t Table) NullFloat(row int, col string) sql.NullFloat64 {
	return toNullFloat(t.Value(row, col))
}

// Float converts a cell to float64, null as zero.
func (t Table) Float(row int, col string) float64 {
	return t.NullFloat(row, col).Float64
}

// Decimal converts a cell to a nullable decimal.
func (t Table) Decimal(row int, col string) decimal.NullDecimal {
	return toNullDecimal(t.Value(row, col))
}

// NullInt converts a cell to a nullable int64.
func (t Table) NullInt(row int, col string) sql.NullInt64 {
	switch v := t.Value(row, col).(type) {
	case int64:
		return sql.NullInt64{Int64: v, Valid: true}
	case float64:
		return sql.NullInt64{Int64: int64(v), Valid: true}
	case decimal.Decimal:
		return sql.NullInt64{Int64: v.IntPart(), Valid: true}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return sql.NullInt64{}
		}
		return sql.NullInt64{Int64: n, Valid: true}
	case bool:
		if v {
			return sql.NullInt64{Int64: 1, Valid: true}
		}
		return sql.NullInt64{Valid: true}
	}
	return sql.NullInt64{}
}

// Int converts a cell to int64, null as zero.
func (t Table) Int(row int, col string) int64 {
	return t.NullInt(row, col).Int64
}

// IntPtr converts a cell to *int64, nil when null.
func (t Table) IntPtr(row int, col string) *int64 {
	n := t.NullInt(row, col)
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// String converts a cell to its text form, null as "".
func (t Table) String(row int, col string) string {
	switch v := t.Value(row, col).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimRight(v, " ")
	case time.Time:
		return v.Format(time.DateOnly)
	case decimal.Decimal:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// NullTime converts a cell to a nullable time.
func (t Table) NullTime(row int, col string) sql.NullTime {
	switch v := t.Value(row, col).(type) {
	case time.Time:
		return sql.NullTime{Time: v, Valid: true}
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return sql.NullTime{Time: parsed, Valid: true}
			}
		}
	}
	return sql.NullTime{}
}

// Time converts a cell to time.Time, reporting whether it was set.
func (t Table) Time(row int, col string) (time.Time, bool) {
	nt := t.NullTime(row, col)
	return nt.Time, nt.Valid
}

func toNullFloat(v any) sql.NullFloat64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: x, Valid: true}
	case int64:
		return sql.NullFloat64{Float64: float64(x), Valid: true}
	case decimal.Decimal:
		return sql.NullFloat64{Float64: x.InexactFloat64(), Valid: true}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: f, Valid: true}
	case bool:
		if x {
			return sql.NullFloat64{Float64: 1, Valid: true}
		}
		return sql.NullFloat64{Valid: true}
	}
	return sql.NullFloat64{}
}

func toNullDecimal(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return decimal.NewNullDecimal(x)
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(x))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

func normalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = normalize(v)
	}
	return out
}

// normalize maps driver values onto the cell types a Table carries.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case string, bool, float64, int64, time.Time, decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return *x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// cell is the tagged JSON form of a table cell so cached tables decode back
// into the same Go types.
type cell struct {
	Kind  string `json:"k"`
	Value string `json:"v,omitempty"`
}

const (
	kindNull    = "n"
	kindInt     = "i"
	kindFloat   = "f"
	kindString  = "s"
	kindBool    = "b"
	kindTime    = "t"
	kindDecimal = "d"
)

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]cell `json:"rows"`
}

// MarshalJSON encodes the table with typed cells.
func (t Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Columns: t.Columns, Rows: make([][]cell, len(t.Rows))}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i, row := range t.Rows {
		cells := make([]cell, len(row))
		for j, v := range row {
			c, err := encodeCell(v)
			if err != nil {
				return nil, fmt.Errorf("fetch: encode cell %d,%d: %w", i, j, err)
			}
			cells[j] = c
		}
		out.Rows[i] = cells
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a table written by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.Columns = in.Columns
	t.Rows = make([][]any, len(in.Rows))
	for i, cells := range in.Rows {
		row := make([]any, len(cells))
		for j, c := range cells {
			v, err := decodeCell(c)
			if err != nil {
				return fmt.Errorf("fetch: decode cell %d,%d: %w", i, j, err)
			}
			row[j] = v
		}
		t.Rows[i] = row
	}
	return nil
}

func encodeCell(v any) (cell, error) {
	switch x := normalize(v).(type) {
	case nil:
		return cell{Kind: kindNull}, nil
	case int64:
		return cell{Kind: kindInt, Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		return cell{Kind: kindFloat, Value: strconv.FormatFloat(x, 'g', -1, 64)}, nil
	case string:
		return cell{Kind: kindString, Value: x}, nil
	case bool:
		return cell{Kind: kindBool, Value: strconv.FormatBool(x)}, nil
	case time.Time:
		return cell{Kind: kindTime, Value: x.Format(time.RFC3339Nano)}, nil
	case decimal.Decimal:
		return cell{Kind: kindDecimal, Value: x.String()}, nil
	default:
		return cell{}, fmt.Errorf("unsupported cell type %T", x)
	}
}

func decodeCell(c cell) (any, error) {
	switch c.Kind {
	case kindNull, "":
		return nil, nil
	case kindInt:
		return strconv.ParseInt(c.Value, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(c.Value, 64)
	case kindString:
		return c.Value, nil
	case kindBool:
		return strconv.ParseBool(c.Value)
	case kindTime:
		return time.Parse(time.RFC3339Nano, c.Value)
	case kindDecimal:
		return decimal.NewFromString(c.Value)
	default:
		return nil, fmt.Errorf("unknown cell kind %q", c.Kind)
	}
}
