package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

// isWorkbook reports whether a zip container holds an OOXML workbook.
func isWorkbook(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/") {
			return true
		}
	}
	return false
}

// readWorkbook renders every sheet as "# <sheet>" followed by tab-joined rows.
func readWorkbook(data []byte, maxSheets int) (string, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("workbook reader: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if maxSheets > 0 && len(sheets) > maxSheets {
		sheets = sheets[:maxSheets]
	}

	var sb strings.Builder
	read := 0
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", read, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		sb.WriteString("# ")
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		read++
	}

	return sb.String(), read, nil
}
