// Package pdfdoc opens PDF files with ledongthuc/pdf and reads page geometry.
package pdfdoc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/folio/internal/models"
)

// Letter is the page size assumed when a page has no usable MediaBox, in points.
var Letter = Size{Width: 612, Height: 792}

// Size is a page size in points.
type Size struct {
	Width  float64
	Height float64
}

// Document is an open PDF.
type Document struct {
	reader *pdf.Reader
	closer io.Closer
}

// Open opens r for reading. The password is offered once; a wrong or missing one
// yields ErrNeedsPassword, anything else the reader rejects yields ErrUnreadable.
func Open(r io.ReaderAt, size int64, password string) (doc *Document, err error) {
	// The reader panics on some malformed object graphs.
	defer func() {
		if p := recover(); p != nil {
			doc = nil
			err = fmt.Errorf("%w: malformed PDF: %v", models.ErrUnreadable, p)
		}
	}()

	offered := false
	reader, err := pdf.NewReaderEncrypted(r, size, func() string {
		if offered {
			return ""
		}
		offered = true
		return password
	})
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: %w", models.ErrNeedsPassword, err)
		}
		return nil, fmt.Errorf("%w: open PDF: %w", models.ErrUnreadable, err)
	}
	return &Document{reader: reader}, nil
}

// OpenFile opens the PDF at path. Close releases the file.
func OpenFile(path, password string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	doc, err := Open(f, info.Size(), password)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	doc.closer = f
	return doc, nil
}

// Close releases the underlying file, if any.
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// NumPage returns the page count. A document with no pages is ErrUnreadable.
func (d *Document) NumPage() (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, fmt.Errorf("%w: malformed page tree: %v", models.ErrUnreadable, p)
		}
	}()
	n = d.reader.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("%w: document has no pages", models.ErrUnreadable)
	}
	return n, nil
}

// PageSize returns the MediaBox size of page, walking up the page tree for an
// inherited box. Pages without a usable box report Letter.
func (d *Document) PageSize(page int) (size Size, err error) {
	defer func() {
		if p := recover(); p != nil {
			size, err = Size{}, fmt.Errorf("%w: page %d: %v", models.ErrUnreadable, page, p)
		}
	}()
	if page < 1 || page > d.reader.NumPage() {
		return Size{}, fmt.Errorf("page %d: %w", page, models.ErrOutOfRange)
	}
	v := d.reader.Page(page).V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w < 0 {
				w = -w
			}
			if h < 0 {
				h = -h
			}
			if w > 0 && h > 0 {
				return Size{Width: w, Height: h}, nil
			}
		}
		v = v.Key("Parent")
	}
	return Letter, nil
}
