package cutout

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"fitscutout/internal/models"
)

// TableRow is one record of a source table. Err is set when the record
// could not be turned into a position; such rows are reported as failures
// without stopping the rest of the table.
type TableRow struct {
	// Line is the 1-based line the record started on
	Line int

	Position models.SkyPosition
	Err      error
}

// Label names the row in messages, falling back to its line number when the
// source name is unusable
func (r TableRow) Label() string {
	if strings.TrimSpace(r.Position.Name) != "" {
		return r.Position.Name
	}
	return fmt.Sprintf("row %d", r.Line)
}

// ReadSourceTable reads a name,ra,dec CSV file
func ReadSourceTable(path string, hasHeader bool) ([]TableRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table: %w", err)
	}
	defer f.Close()

	rows, err := ParseSourceTable(f, hasHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source table %s: %w", path, err)
	}
	return rows, nil
}

// ParseSourceTable parses name,ra,dec records. Blank lines and lines starting
// with '#' are ignored; extra columns are allowed.
func ParseSourceTable(r io.Reader, hasHeader bool) ([]TableRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var rows []TableRow
	skipHeader := hasHeader

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if skipHeader {
				skipHeader = false
				continue
			}
			rows = append(rows, TableRow{Line: parseErr.StartLine, Err: parseErr})
			continue
		}
		if err != nil {
			return rows, err
		}

		if skipHeader {
			skipHeader = false
			continue
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, parseRecord(line, record))
	}

	return rows, nil
}

func parseRecord(line int, record []string) TableRow {
	row := TableRow{Line: line}

	if len(record) > 0 {
		row.Position.Name = strings.TrimSpace(record[0])
	}
	if len(record) < 3 {
		row.Err = fmt.Errorf("line %d: expected name,ra,dec but found %d columns", line, len(record))
		return row
	}

	ra, err := parseDegrees(record[1])
	if err != nil {
		row.Err = fmt.Errorf("line %d: invalid ra %q: %w", line, record[1], err)
		return row
	}
	dec, err := parseDegrees(record[2])
	if err != nil {
		row.Err = fmt.Errorf("line %d: invalid dec %q: %w", line, record[2], err)
		return row
	}
	if dec < -90 || dec > 90 {
		row.Err = fmt.Errorf("line %d: dec %g is outside [-90, 90]", line, dec)
		return row
	}
	if row.Position.Name == "" {
		row.Err = fmt.Errorf("line %d: empty source name", line)
		return row
	}

	row.Position.RA = ra
	row.Position.Dec = dec
	return row
}

func parseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}
