// Package importer reads bulk part lists exported from the ERP, either as an
// Excel workbook or as a CSV file.
package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"

	"parttracker/store"
	"parttracker/tracking"
)

// Row is one data line of an import file.
type Row struct {
	Line    int
	PartID  string
	Product string
	Route   string
}

var (
	partIDHeaders  = []string{"part_id", "артикул"}
	productHeaders = []string{"product", "product_designation", "номенклатура"}
	routeHeaders   = []string{"route", "маршрут"}
)

var (
	ErrMissingColumns    = errors.New("import file must have part id and product columns")
	ErrUnsupportedFormat = errors.New("legacy .xls workbooks are not supported, save as .xlsx or .csv")
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// records yields raw table rows with their 1-based line in the source file.
// It returns io.EOF after the last row.
type records interface {
	next() ([]string, int, error)
}

// Parse reads an .xlsx workbook (first sheet) or a comma or semicolon
// separated file. The format is detected from the content. The first row is
// the header. Fully blank rows and spreadsheet "nan" part ids are dropped.
func Parse(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(4)
	switch {
	case bytes.Equal(magic, zipMagic):
		src, err := newSheetRecords(br)
		if err != nil {
			return nil, err
		}
		return collect(src)
	case bytes.Equal(magic, oleMagic):
		return nil, ErrUnsupportedFormat
	}
	src, err := newCSVRecords(br)
	if err != nil {
		return nil, err
	}
	return collect(src)
}

func collect(src records) ([]Row, error) {
	header, _, err := src.next()
	if err == io.EOF {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol := findColumn(header, partIDHeaders)
	productCol := findColumn(header, productHeaders)
	routeCol := findColumn(header, routeHeaders)
	if idCol < 0 || productCol < 0 {
		return nil, ErrMissingColumns
	}

	var rows []Row
	for {
		rec, line, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := Row{
			Line:    line,
			PartID:  field(rec, idCol),
			Product: field(rec, productCol),
			Route:   field(rec, routeCol),
		}
		if row.PartID == "" && row.Product == "" {
			continue
		}
		if strings.EqualFold(row.PartID, "nan") {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func findColumn(header []string, names []string) int {
	fold := cases.Fold()
	for i, h := range header {
		h = fold.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Inputs converts rows to part inputs, resolving route names against
// templates. Rows without a route get the default template. Rows naming an
// unknown route are left out and returned as rejected so the rest of the
// batch can still be imported.
func Inputs(rows []Row, templates []*store.RouteTemplate) ([]tracking.PartInput, []tracking.RowError) {
	fold := cases.Fold()
	byName := make(map[string]int64, len(templates))
	for _, t := range templates {
		byName[fold.String(t.Name)] = t.ID
	}
	inputs := make([]tracking.PartInput, 0, len(rows))
	var rejected []tracking.RowError
	for _, r := range rows {
		in := tracking.PartInput{PartID: r.PartID, ProductDesignation: r.Product, Line: r.Line}
		if r.Route != "" {
			id, ok := byName[fold.String(r.Route)]
			if !ok {
				rejected = append(rejected, tracking.RowError{
					Row:    r.Line,
					PartID: r.PartID,
					Reason: fmt.Sprintf("unknown route %q", r.Route),
				})
				continue
			}
			in.RouteTemplateID = &id
		}
		inputs = append(inputs, in)
	}
	return inputs, rejected
}
