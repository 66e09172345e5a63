package cutout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSourceTable(t *testing.T) {
	input := `# name, ra, dec
a, 10.5, -20.25
b,not-a-number,5

c,359.9,89.99,extra,columns
d,1,95
,1,2
e,1
`
	rows, err := ParseSourceTable(strings.NewReader(input), false)
	if err != nil {
		t.Fatalf("ParseSourceTable failed: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows, got %d", len(rows))
	}

	a := rows[0]
	if a.Err != nil || a.Position.Name != "a" || a.Position.RA != 10.5 || a.Position.Dec != -20.25 {
		t.Errorf("Unexpected first row %+v", a)
	}
	if a.Line != 2 {
		t.Errorf("Expected row a on line 2, got %d", a.Line)
	}

	if rows[1].Err == nil || rows[1].Label() != "b" {
		t.Errorf("Expected row b to carry a parse error, got %+v", rows[1])
	}
	if !strings.Contains(rows[1].Err.Error(), "ra") {
		t.Errorf("Expected the error to name the ra column, got %v", rows[1].Err)
	}

	if rows[2].Err != nil || rows[2].Position.Name != "c" {
		t.Errorf("Expected extra columns to be ignored, got %+v", rows[2])
	}
	if rows[3].Err == nil {
		t.Error("Expected dec=95 to be rejected")
	}
	if rows[4].Err == nil || rows[4].Label() != "row 7" {
		t.Errorf("Expected the unnamed row to be labelled by line, got %q: %v", rows[4].Label(), rows[4].Err)
	}
	if rows[5].Err == nil {
		t.Error("Expected a two-column row to be rejected")
	}
}

func TestParseSourceTableHeader(t *testing.T) {
	input := "name,ra,dec\nm31,10.68,41.27\n"

	rows, err := ParseSourceTable(strings.NewReader(input), true)
	if err != nil {
		t.Fatalf("ParseSourceTable failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Position.Name != "m31" || rows[0].Err != nil {
		t.Errorf("Expected the header row to be skipped, got %+v", rows)
	}

	// Without the option the header line is an invalid row
	rows, err = ParseSourceTable(strings.NewReader(input), false)
	if err != nil {
		t.Fatalf("ParseSourceTable failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Err == nil {
		t.Errorf("Expected the header line to be reported as a bad row, got %+v", rows)
	}
}

func TestParseSourceTableMalformedQuote(t *testing.T) {
	input := "a,1,2\n\"b,3,4\nc,5,6\n"

	rows, err := ParseSourceTable(strings.NewReader(input), false)
	if err != nil {
		t.Fatalf("ParseSourceTable failed: %v", err)
	}
	if len(rows) < 2 {
		t.Fatalf("Expected the good row and the bad one, got %+v", rows)
	}
	if rows[0].Err != nil {
		t.Errorf("Expected row a to parse, got %v", rows[0].Err)
	}
	if rows[1].Err == nil {
		t.Error("Expected the unterminated quote to be reported")
	}
}

func TestReadSourceTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.csv")
	if err := os.WriteFile(path, []byte("x,1,2\ny,3,4\n"), 0644); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	rows, err := ReadSourceTable(path, false)
	if err != nil {
		t.Fatalf("ReadSourceTable failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}

	if _, err := ReadSourceTable(filepath.Join(t.TempDir(), "missing.csv"), false); err == nil {
		t.Error("Expected an error for a missing table")
	}
}
