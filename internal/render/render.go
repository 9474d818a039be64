// Package render serializes workbooks into downloadable files.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/pavelanni/gradesheet/internal/model"
)

// ErrSerialization reports that a workbook could not be turned into bytes.
// The workbook itself is valid; callers should treat this as retryable.
var ErrSerialization = errors.New("serialization error")

// Write serializes wb in the given format.
func Write(ctx context.Context, w io.Writer, wb *model.Workbook, format model.Format) error {
	switch format {
	case model.FormatXLSX, "":
		return WriteXLSX(ctx, w, wb)
	case model.FormatCSV:
		return WriteCSV(ctx, w, wb)
	default:
		return fmt.Errorf("%w: format %q is not supported", ErrSerialization, format)
	}
}

// ContentType returns the MIME type for a format.
func ContentType(format model.Format) string {
	switch format {
	case model.FormatCSV:
		return "text/csv; charset=utf-8"
	case model.FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// FileName returns the workbook's filename with the format's extension.
func FileName(wb *model.Workbook, format model.Format) string {
	if format == "" {
		format = model.FormatXLSX
	}
	return wb.Filename + "." + string(format)
}

// cellText renders a primitive cell value as text.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
