package ports

import (
	"context"
	"io"

	"trolleymatch/domain/match"
	"trolleymatch/domain/sheet"
)

// SheetReader loads the first worksheet of an uploaded workbook
type SheetReader interface {
	Read(ctx context.Context, path string) (*sheet.Sheet, error)
}

// ResultWriter serialises exported rows
type ResultWriter interface {
	Write(w io.Writer, results []match.Result) error
	ContentType() string
	Extension() string
}
