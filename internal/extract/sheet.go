package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

// sheetText renders every sheet row as tab separated cells, one row per line.
func sheetText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// catText handles OpenDocument text and RTF, which cat detects from the content.
func catText(content []byte) (string, error) {
	return cat.FromBytes(content)
}
