// Package fileid derives deterministic archive names from document file names.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// ArchiveExt is the extension of every archive name.
const ArchiveExt = ".archive"

const (
	maxStemLen  = 64
	hashHexLen  = 16
	defaultStem = "document"
)

// ArchiveName returns the archive file name for fileName. Only the base name counts,
// so "/a/book.pdf" and "book.pdf" share an archive. The same name always yields the
// same archive name; the readable stem is sanitized and the hash keeps names distinct.
func ArchiveName(fileName string) string {
	base := filepath.Base(filepath.Clean(fileName))
	hash := sha256.Sum256([]byte(base))
	return sanitizeStem(strings.TrimSuffix(base, filepath.Ext(base))) + "-" + hex.EncodeToString(hash[:])[:hashHexLen] + ArchiveExt
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxStemLen {
			break
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return defaultStem
	}
	return s
}
