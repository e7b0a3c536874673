package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type of WriteWorkbook output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	fmtMoney   = `"R$" #,##0.00`
	fmtNumber  = `#,##0.00`
	fmtInteger = `0`
	fmtPercent = `0.00"%"`
	fmtDate    = `dd/mm/yyyy`
)

// WriteWorkbook writes one worksheet per sheet, in order, with a bold header
// row and typed cells.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	used := make(map[string]int, len(sheets))
	for i, sheet := range sheets {
		name := uniqueSheetName(SanitizeSheetName(sheet.Name), used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, sheet, styles); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

type sheetStyles struct {
	header int
	kinds  map[Kind]int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F5F5F5"}, Pattern: 1},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("export: header style: %w", err)
	}
	s := sheetStyles{header: header, kinds: make(map[Kind]int)}
	formats := map[Kind]string{
		KindMoney:   fmtMoney,
		KindNumber:  fmtNumber,
		KindInteger: fmtInteger,
		KindPercent: fmtPercent,
		KindDate:    fmtDate,
	}
	for kind, format := range formats {
		id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			return sheetStyles{}, fmt.Errorf("export: number format %q: %w", format, err)
		}
		s.kinds[kind] = id
	}
	return s, nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet, styles sheetStyles) error {
	for c, col := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, col.Header); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, styles.header); err != nil {
			return err
		}
		letter, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, letter, letter, columnWidth(col)); err != nil {
			return err
		}
	}
	for r, row := range sheet.Rows {
		for c, value := range row {
			if c >= len(sheet.Columns) {
				break
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			v, ok := cellValue(value)
			if !ok {
				continue
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
			if id, ok := styles.kinds[sheet.Columns[c].Kind]; ok {
				if err := f.SetCellStyle(name, cell, cell, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// cellValue maps a row value to what excelize stores natively. Decimals are
// stored as numbers so spreadsheet formulas keep working.
func cellValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case time.Time:
		if val.IsZero() {
			return nil, false
		}
		return val, true
	case decimal.Decimal:
		return val.InexactFloat64(), true
	case bool:
		return formatCell(val), true
	default:
		return val, true
	}
}

func columnWidth(col Column) float64 {
	width := float64(len([]rune(col.Header))) + 4
	switch col.Kind {
	case KindMoney, KindNumber:
		width = max(width, 16)
	case KindDate:
		width = max(width, 12)
	case KindText:
		width = max(width, 24)
	}
	return width
}

func uniqueSheetName(name string, used map[string]int) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	suffix := "_" + strconv.Itoa(n+1)
	r := []rune(name)
	if len(r)+len(suffix) > maxSheetName {
		r = r[:maxSheetName-len(suffix)]
	}
	return string(r) + suffix
}
