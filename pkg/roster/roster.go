package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Roster column names.
const (
	ColFirstName    = "First Name"
	ColLastName     = "Last Name"
	ColEmail        = "Email"
	ColAvailability = "Availability"
)

// ErrMissingColumn is returned when a roster lacks a name or email column.
var ErrMissingColumn = errors.New("roster: missing column")

// Table is a roster held in memory with its original header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Decode converts raw bytes to UTF-8. Input that is not valid UTF-8 is
// treated as Windows-1252, which also covers Latin-1 exports.
func Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}

// ReadTable reads a roster with a header row.
func ReadTable(r io.Reader) (*Table, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty roster", ErrMissingColumn)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &Table{Header: header, Rows: records[1:]}, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return records, nil
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns a trimmed cell, empty when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func (t *Table) identity() (first, last, email int, err error) {
	cols := [3]int{}
	for i, name := range []string{ColFirstName, ColLastName, ColEmail} {
		if cols[i] = t.Index(name); cols[i] < 0 {
			return 0, 0, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols[0], cols[1], cols[2], nil
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Identifier is the case-insensitive key used to match roster rows.
func Identifier(first, last, email string) string {
	return strings.ToLower(strings.TrimSpace(first) + "_" + strings.TrimSpace(last) + "_" + strings.TrimSpace(email))
}

// ReadFinalList reads the header-less final volunteer list (First, Last,
// Email, Role, Completed) and returns the set of identifiers it names.
func ReadFinalList(r io.Reader) (map[string]bool, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(records))
	for _, rec := range records {
		if len(rec) < 3 {
			continue
		}
		ids[Identifier(rec[0], rec[1], rec[2])] = true
	}
	return ids, nil
}

// FilterFinal keeps the rows of full whose identifier is in final. Rows keep
// their original order and columns.
func FilterFinal(full *Table, final map[string]bool) (*Table, error) {
	first, last, email, err := full.identity()
	if err != nil {
		return nil, err
	}
	out := &Table{Header: full.Header, Rows: [][]string{}}
	for _, row := range full.Rows {
		id := Identifier(full.Cell(row, first), full.Cell(row, last), full.Cell(row, email))
		if final[id] {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
