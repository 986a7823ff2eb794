package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheetRecords walks the first worksheet of a workbook, the sheet an ERP
// export puts its table on.
type sheetRecords struct {
	rows [][]string
	pos  int
}

func newSheetRecords(r io.Reader) (*sheetRecords, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingColumns
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return &sheetRecords{rows: rows}, nil
}

func (s *sheetRecords) next() ([]string, int, error) {
	if s.pos >= len(s.rows) {
		return nil, 0, io.EOF
	}
	s.pos++
	return s.rows[s.pos-1], s.pos, nil
}
