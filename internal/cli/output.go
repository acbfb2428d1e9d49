// Package cli formats folio command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/folio/internal/docstore"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/pagebar"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// DocumentInfo is what "folio open" reports. It never carries the password.
type DocumentInfo struct {
	GUID       string    `json:"guid"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	FileSize   int64     `json:"file_size"`
	PageCount  int       `json:"page_count"`
	PageNumber int       `json:"page_number"`
	Bookmarks  []int     `json:"bookmarks"`
	LastOpen   time.Time `json:"last_open"`
	Pagebar    string    `json:"pagebar"`
}

// NewDocumentInfo summarizes rec.
func NewDocumentInfo(rec *models.DocumentRecord) *DocumentInfo {
	return &DocumentInfo{
		GUID:       rec.GUID,
		FileName:   rec.FileName,
		FilePath:   rec.FilePath,
		FileSize:   rec.FileSize,
		PageCount:  rec.PageCount,
		PageNumber: rec.PageNumber,
		Bookmarks:  rec.Bookmarks(),
		LastOpen:   rec.LastOpen,
		Pagebar:    pagebar.Label(rec.PageNumber, rec.PageCount),
	}
}

// WriteDocument writes info to w in the given format.
func WriteDocument(w io.Writer, info *DocumentInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "guid:        %s\n", info.GUID)
	fmt.Fprintf(w, "file:        %s\n", info.FilePath)
	fmt.Fprintf(w, "size:        %s\n", FormatBytes(info.FileSize))
	fmt.Fprintf(w, "page:        %s\n", info.Pagebar)
	fmt.Fprintf(w, "bookmarks:   %s\n", joinInts(info.Bookmarks))
	if !info.LastOpen.IsZero() {
		fmt.Fprintf(w, "last_open:   %s\n", info.LastOpen.Format(time.RFC3339))
	}
	return nil
}

// WriteRecent writes the recents list to w in the given format.
func WriteRecent(w io.Writer, entries []*docstore.LibraryEntry, format OutputFormat) error {
	if format == OutputJSON {
		if entries == nil {
			entries = []*docstore.LibraryEntry{}
		}
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recent documents.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-40s  %-12s  %3d bookmarks  %s\n",
			Truncate(e.FileName, 40),
			pagebar.Label(e.PageNumber, e.PageCount),
			e.Bookmarks,
			e.LastOpen.Local().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

// WriteUsage writes support directory usage to w in the given format.
func WriteUsage(w io.Writer, u docstore.Usage, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, u)
	}
	fmt.Fprintf(w, "archives:       %d   # saved documents\n", u.Archives)
	fmt.Fprintf(w, "archive_bytes:  %s\n", FormatBytes(u.ArchiveBytes))
	fmt.Fprintf(w, "total_bytes:    %s   # archives + library\n", FormatBytes(u.TotalBytes))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinInts(vs []int) string {
	if len(vs) == 0 {
		return "-"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
