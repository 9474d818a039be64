package render

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pavelanni/gradesheet/internal/model"
)

// WriteCSV flattens the workbook: every sheet starts with a
// "=== <name> ===" line, followed by its header and rows; sheets are
// separated by a blank line.
func WriteCSV(ctx context.Context, w io.Writer, wb *model.Workbook) error {
	cw := csv.NewWriter(w)
	for i, sheet := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if err := cw.Write([]string{""}); err != nil {
				return fmt.Errorf("%w: csv: %w", ErrSerialization, err)
			}
		}
		if err := cw.Write([]string{"=== " + sheet.Name + " ==="}); err != nil {
			return fmt.Errorf("%w: csv: %w", ErrSerialization, err)
		}
		if err := cw.Write(sheet.Header); err != nil {
			return fmt.Errorf("%w: csv: %w", ErrSerialization, err)
		}
		for _, row := range sheet.Rows {
			record := make([]string, len(row.Cells))
			for j, c := range row.Cells {
				record[j] = cellText(c)
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("%w: csv: %w", ErrSerialization, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: csv: %w", ErrSerialization, err)
	}
	return nil
}
