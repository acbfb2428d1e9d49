// Package testpdf writes small, valid PDF files for tests: a page tree with empty
// pages and, optionally, Standard security handler (RC4, revision 2) encryption.
package testpdf

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Options describes the document to build.
type Options struct {
	Pages    int
	Password string
	// Encrypt forces encryption even with an empty user password.
	Encrypt bool
}

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

const permissions int32 = -4

// Build returns the bytes of a PDF with opts.Pages empty pages.
func Build(opts Options) []byte {
	pages := opts.Pages
	if pages < 1 {
		pages = 1
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	total := 2 + pages
	offsets := make([]int, total+1)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", 3+i)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))
	for i := 0; i < pages; i++ {
		writeObj(3+i, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= total; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}

	extra := ""
	if opts.Encrypt || opts.Password != "" {
		extra = encryptEntries(opts.Password)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\n", total+1, extra)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

// encryptEntries returns the /Encrypt and /ID trailer entries for a revision 2
// handler whose user password is password.
func encryptEntries(password string) string {
	ownerSum := sha256.Sum256([]byte("owner"))
	owner := ownerSum[:32]
	idSum := md5.Sum([]byte("folio-test-document"))
	id := idSum[:]

	pw := []byte(password)
	if len(pw) > 32 {
		pw = pw[:32]
	}
	h := md5.New()
	h.Write(pw)
	h.Write(passwordPad[:32-len(pw)])
	h.Write(owner)
	perm := permissions
	p := uint32(perm)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(id)
	key := h.Sum(nil)[:5]

	c, err := rc4.NewCipher(key)
	if err != nil {
		panic(err)
	}
	user := make([]byte, 32)
	c.XORKeyStream(user, passwordPad)

	return fmt.Sprintf(" /Encrypt << /Filter /Standard /V 1 /R 2 /Length 40 /O <%s> /U <%s> /P %d >> /ID [<%s> <%s>]",
		hex.EncodeToString(owner), hex.EncodeToString(user), permissions,
		hex.EncodeToString(id), hex.EncodeToString(id))
}

// Write builds the document into dir/name and returns the path.
func Write(tb testing.TB, dir, name string, opts Options) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(opts), 0644); err != nil {
		tb.Fatal(err)
	}
	return path
}
