// Package workbook turns .xlsx files into the rows.Book shape the engine
// consumes. The first row of each sheet is the header; subsequent rows map
// header name → cell text. Ragged rows are tolerated: missing trailing
// cells become empty strings, extra cells beyond the header are dropped.
//
// The engine itself never parses spreadsheet formats; this package is the
// ingestion glue in front of it.
package workbook

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sheetpipe/pkg/rows"
)

// Load reads every path into one Book keyed by the given path. Files are
// read concurrently; the resulting map is assembled under a lock and is
// deterministic because it is keyed by name (the engine sorts keys before
// iterating). Office lock-file names are skipped here as well as in the
// engine.
func Load(ctx context.Context, paths []string) (rows.Book, error) {
	book := rows.Book{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		if rows.IsLockFile(filepath.Base(path)) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sheets, err := loadOne(path)
			if err != nil {
				return err
			}
			mu.Lock()
			book[path] = sheets
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return book, nil
}

func loadOne(path string) (map[string][]rows.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	out := map[string][]rows.Row{}
	for _, sheet := range f.GetSheetList() {
		cells, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s!%s: %w", path, sheet, err)
		}
		out[sheet] = toRows(cells)
	}
	return out, nil
}

func toRows(cells [][]string) []rows.Row {
	if len(cells) == 0 {
		return []rows.Row{}
	}
	header := cells[0]
	body := make([]rows.Row, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := make(rows.Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(line) {
				row[name] = line[i]
			} else {
				row[name] = ""
			}
		}
		body = append(body, row)
	}
	return body
}
