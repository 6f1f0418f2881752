package workbook

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"sheetpipe/pkg/rows"
)

/*
TestToRows covers the header mapping contract: first row names the
columns, ragged data rows pad or truncate, empty header cells are skipped.
*/
func TestToRows(t *testing.T) {
	tests := []struct {
		name  string
		cells [][]string
		want  []rows.Row
	}{
		{
			name:  "empty sheet",
			cells: nil,
			want:  []rows.Row{},
		},
		{
			name:  "header only",
			cells: [][]string{{"A", "B"}},
			want:  []rows.Row{},
		},
		{
			name: "plain rows",
			cells: [][]string{
				{"A", "B"},
				{"1", "2"},
			},
			want: []rows.Row{{"A": "1", "B": "2"}},
		},
		{
			name: "short row pads trailing cells",
			cells: [][]string{
				{"A", "B"},
				{"1"},
			},
			want: []rows.Row{{"A": "1", "B": ""}},
		},
		{
			name: "long row drops extra cells",
			cells: [][]string{
				{"A"},
				{"1", "2", "3"},
			},
			want: []rows.Row{{"A": "1"}},
		},
		{
			name: "empty header cell skipped",
			cells: [][]string{
				{"A", "", "C"},
				{"1", "2", "3"},
			},
			want: []rows.Row{{"A": "1", "C": "3"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toRows(tt.cells)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("toRows() = %#v; want %#v", got, tt.want)
			}
		})
	}
}

func writeWorkbook(t *testing.T, path string, data map[string][][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for sheet, cells := range data {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet(%s): %v", sheet, err)
		}
		for i, line := range cells {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(sheet, cell, &line); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("DeleteSheet: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs(%s): %v", path, err)
	}
}

/*
TestLoad writes a real workbook and reads it back, verifying the book
shape and the lock-file skip.
*/
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Data": {
			{"Status", "Amount"},
			{"OK", "10"},
			{"NO", "5"},
		},
	})

	book, err := Load(context.Background(), []string{path, filepath.Join(dir, "~$orders.xlsx")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(book) != 1 {
		t.Fatalf("book has %d files; want 1", len(book))
	}
	want := []rows.Row{
		{"Status": "OK", "Amount": "10"},
		{"Status": "NO", "Amount": "5"},
	}
	if !reflect.DeepEqual(book[path]["Data"], want) {
		t.Fatalf("rows = %#v; want %#v", book[path]["Data"], want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(context.Background(), []string{filepath.Join(t.TempDir(), "absent.xlsx")}); err == nil {
		t.Fatal("want open error")
	}
}
