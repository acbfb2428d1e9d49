package docstore

import (
	"bytes"
	"io"
	"os"

	"github.com/hyperjump/folio/internal/pdfdoc"
)

// signatureWindow is how many leading bytes may precede the %PDF marker.
const signatureWindow = 1024

var pdfSignature = []byte("%PDF")

// IsPDF reports whether the file at filePath carries a PDF signature in its first
// 1024 bytes. It does not parse the document.
func IsPDF(filePath string) (bool, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return hasPDFSignature(f)
}

func hasPDFSignature(r io.ReaderAt) (bool, error) {
	buf := make([]byte, signatureWindow)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return false, err
	}
	return bytes.Contains(buf[:n], pdfSignature), nil
}

// probePDF opens the document far enough to learn its page count and to check the
// password.
func probePDF(r io.ReaderAt, size int64, password string) (int, error) {
	doc, err := pdfdoc.Open(r, size, password)
	if err != nil {
		return 0, err
	}
	return doc.NumPage()
}
