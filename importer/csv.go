package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

type csvRecords struct {
	r *csv.Reader
}

func newCSVRecords(r io.Reader) (*csvRecords, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.Comma = sniffDelimiter(string(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &csvRecords{r: cr}, nil
}

func (c *csvRecords) next() ([]string, int, error) {
	rec, err := c.r.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := c.r.FieldPos(0)
	return rec, line, nil
}

func sniffDelimiter(data string) rune {
	first, _, _ := strings.Cut(data, "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}
