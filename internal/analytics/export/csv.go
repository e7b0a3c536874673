package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// WriteCSV serialises one sheet with its header row.
func WriteCSV(w io.Writer, sheet Sheet) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := make([]string, len(sheet.Columns))
	for i, col := range sheet.Columns {
		headers[i] = col.Header
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(sheet.Columns))
	for _, row := range sheet.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format("2006-01-02")
	case decimal.Decimal:
		return val.StringFixed(2)
	case float64:
		return formatFloat(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "Sim"
		}
		return "Não"
	default:
		return ""
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
