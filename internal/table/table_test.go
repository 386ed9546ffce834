package table

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffusername, email\nr1-Alice,a@x.com\n\nr2-Bob,b@x.com,extra\nr3-Carol\n"
	tbl, err := ReadCSV("roster", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := strings.Join(tbl.Columns, "|"); got != "username|email" {
		t.Errorf("unexpected columns %q", got)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if tbl.Rows[2][1] != "" {
		t.Errorf("short row should be padded, got %q", tbl.Rows[2][1])
	}
	if len(tbl.Rows[1]) != 2 {
		t.Errorf("long row should be truncated to header width, got %d cells", len(tbl.Rows[1]))
	}
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV("roster", strings.NewReader(""))
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Roll No", "Batch", "Starters 1", "Starters 2"},
		{"r1", "B1", 1, "Not Participated"},
		{"r2", "B2", 0, 1},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	tbl, err := ReadXLSX("results", &buf)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if tbl.Index("Starters 2") != 3 {
		t.Errorf("Starters 2 index = %d", tbl.Index("Starters 2"))
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0][3] != "Not Participated" || tbl.Rows[1][2] != "0" {
		t.Errorf("unexpected cells: %v", tbl.Rows)
	}
}

func TestReadDispatch(t *testing.T) {
	if _, err := Read("roster", "members.CSV", strings.NewReader("username,email\n")); err != nil {
		t.Errorf("csv dispatch: %v", err)
	}
	if _, err := Read("roster", "members.txt", strings.NewReader("x")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestClone(t *testing.T) {
	orig := New("t", []string{" a ", "b"}, [][]string{{"1", "2"}})
	if !orig.Has("a") {
		t.Error("header cells should be trimmed")
	}
	c := orig.Clone()
	c.Rows[0][0] = "changed"
	if orig.Rows[0][0] != "1" {
		t.Error("Clone shares row storage with the original")
	}
}

func TestSourceLines(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		in := "Roll No,Starters 1\nr0,1\n\n,\nr1,x\n"
		tbl, err := ReadCSV("results", strings.NewReader(in))
		if err != nil {
			t.Fatalf("ReadCSV: %v", err)
		}
		if tbl.Len() != 2 {
			t.Fatalf("expected 2 rows, got %d", tbl.Len())
		}
		if tbl.Line(0) != 2 || tbl.Line(1) != 5 {
			t.Errorf("lines = %v, want [2 5]", tbl.Lines)
		}
	})

	t.Run("new", func(t *testing.T) {
		tbl := New("results", []string{"Roll No"}, [][]string{{"r0"}, {""}, {" "}, {"r1"}})
		if tbl.Line(1) != 5 {
			t.Errorf("lines = %v, want [2 5]", tbl.Lines)
		}
		if c := tbl.Clone(); c.Line(1) != 5 {
			t.Errorf("clone lost lines: %v", c.Lines)
		}
	})
}
