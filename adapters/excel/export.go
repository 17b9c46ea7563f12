package excel

import (
	"io"

	"github.com/xuri/excelize/v2"

	"cloneops/domain/board"
	"cloneops/domain/persona"
)

// BoardExport is one board plus its derived summaries, ready for a workbook.
type BoardExport struct {
	Board   *board.Board
	Totals  board.Totals
	ByScore []board.ScoreBucket
}

// BuildExports derives the summary rows for all boards against one corpus.
func BuildExports(boards []*board.Board, corpus []persona.Record) []BoardExport {
	out := make([]BoardExport, 0, len(boards))
	for _, b := range boards {
		out = append(out, BoardExport{
			Board:   b,
			Totals:  board.CountTotals(b),
			ByScore: board.SummarizeByScore(b, corpus),
		})
	}
	return out
}

var summaryHeaders = []string{"board", "positive", "negative", "unknown", "total"}
var scoreHeaders = []string{"board", "engagement_score", "positive", "negative", "unknown"}

// WriteWorkbook renders the boards into a two-sheet workbook and writes it
// to w. Sheet "Summary" holds one row per board; sheet "ByScore" holds the
// 30-bucket breakdown for each.
func WriteWorkbook(w io.Writer, exports []BoardExport) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	if err := writeRow(f, summary, 1, summaryHeaders); err != nil {
		return err
	}
	for i, ex := range exports {
		row := []any{ex.Board.Name, ex.Totals.Positive, ex.Totals.Negative, ex.Totals.Unknown, ex.Totals.Total}
		if err := writeValues(f, summary, i+2, row); err != nil {
			return err
		}
	}

	byScore := "ByScore"
	if _, err := f.NewSheet(byScore); err != nil {
		return err
	}
	if err := writeRow(f, byScore, 1, scoreHeaders); err != nil {
		return err
	}
	rowIdx := 2
	for _, ex := range exports {
		for _, bucket := range ex.ByScore {
			if bucket.Positive == 0 && bucket.Negative == 0 && bucket.Unknown == 0 {
				continue
			}
			row := []any{ex.Board.Name, bucket.Score, bucket.Positive, bucket.Negative, bucket.Unknown}
			if err := writeValues(f, byScore, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return writeValues(f, sheet, row, cells)
}

func writeValues(f *excelize.File, sheet string, row int, values []any) error {
	for c, v := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
