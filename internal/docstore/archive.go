package docstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperjump/folio/internal/models"
)

const archiveVersion = 1

// archiveEnvelope is the on-disk form. Checksum covers the compacted Record bytes so a
// truncated or edited archive is detected before any field is trusted.
type archiveEnvelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Record   json.RawMessage `json:"record"`
}

// archiveRecord holds the persisted fields. The password is never archived.
type archiveRecord struct {
	GUID       string    `json:"guid"`
	FileName   string    `json:"file_name"`
	FileDate   time.Time `json:"file_date"`
	Location   string    `json:"location"`
	Relative   bool      `json:"relative"`
	FileSize   int64     `json:"file_size"`
	PageCount  int       `json:"page_count"`
	PageNumber int       `json:"page_number"`
	Bookmarks  []int     `json:"bookmarks"`
	LastOpen   time.Time `json:"last_open"`
}

func encodeArchive(rec *models.DocumentRecord, location string, relative bool) ([]byte, error) {
	body, err := json.Marshal(archiveRecord{
		GUID:       rec.GUID,
		FileName:   rec.FileName,
		FileDate:   rec.FileDate,
		Location:   location,
		Relative:   relative,
		FileSize:   rec.FileSize,
		PageCount:  rec.PageCount,
		PageNumber: rec.PageNumber,
		Bookmarks:  rec.Bookmarks(),
		LastOpen:   rec.LastOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return json.MarshalIndent(archiveEnvelope{
		Version:  archiveVersion,
		Checksum: checksum(body),
		Record:   body,
	}, "", "  ")
}

// decodeArchive returns ErrCorruptArchive for anything that is not a well-formed,
// self-consistent archive.
func decodeArchive(data []byte) (*archiveRecord, error) {
	var env archiveEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCorruptArchive, err)
	}
	if env.Version != archiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", models.ErrCorruptArchive, env.Version)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Record); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCorruptArchive, err)
	}
	if env.Checksum != checksum(compact.Bytes()) {
		return nil, fmt.Errorf("%w: checksum mismatch", models.ErrCorruptArchive)
	}
	var rec archiveRecord
	if err := json.Unmarshal(env.Record, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCorruptArchive, err)
	}
	if rec.GUID == "" || rec.FileName == "" {
		return nil, fmt.Errorf("%w: missing identity", models.ErrCorruptArchive)
	}
	if rec.PageCount < 1 || rec.PageNumber < 1 || rec.PageNumber > rec.PageCount {
		return nil, fmt.Errorf("%w: page %d of %d", models.ErrCorruptArchive, rec.PageNumber, rec.PageCount)
	}
	return &rec, nil
}

func (a *archiveRecord) toRecord(filePath, password string) *models.DocumentRecord {
	rec := models.NewDocumentRecord(a.GUID, a.FileName, filePath, a.FileDate, a.FileSize, password, a.PageCount)
	rec.PageNumber = a.PageNumber
	rec.LastOpen = a.LastOpen
	rec.SetBookmarks(a.Bookmarks)
	return rec
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
