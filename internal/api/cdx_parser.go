package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/snapshot-scout/internal/analysis"
	"github.com/thesavant42/snapshot-scout/internal/models"
)

// DefaultArchiveBase is the host that serves archived pages
const DefaultArchiveBase = "https://web.archive.org"

// acceptedStatus lists the status codes treated as successful captures.
// "-" appears for revisits and warc/revisit records.
var acceptedStatus = map[string]bool{
	"200": true,
	"301": true,
	"-":   true,
}

// BuildArchiveURL returns the playback URL for a capture:
// <archive-base>/web/<timestamp>/<originalUrl>
func BuildArchiveURL(archiveBase, timestamp, originalURL string) string {
	return strings.TrimSuffix(archiveBase, "/") + "/web/" + timestamp + "/" + originalURL
}

// ParseCDXLines parses a line-oriented CDX JSON response.
// Format: header row first, then one JSON array per line:
//
//	["timestamp","original","statuscode"],
//	["20230115000000","http://x.com/","200"],
//
// Lines may carry a trailing comma, and a full JSON body wraps the first and
// last lines in an extra bracket. Malformed lines are skipped, never fatal.
// Each kept record is classified relative to now.
func ParseCDXLines(body string, archiveBase string, now time.Time, logger *log.Logger) []models.SnapshotRecord {
	if archiveBase == "" {
		archiveBase = DefaultArchiveBase
	}

	if rows, ok := decodeCDXDocument(body); ok {
		return recordsFromRows(rows, archiveBase, now, logger)
	}

	records := make([]models.SnapshotRecord, 0)
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		line := normalizeCDXLine(scanner.Text())
		if line == "" {
			continue
		}
		lineNo++
		// First non-blank row is the header
		if lineNo == 1 {
			continue
		}

		record, err := parseCDXRow(line, archiveBase, now)
		if err != nil {
			if logger != nil {
				logger.Debug("Skipping CDX line", "line", lineNo, "error", err)
			}
			continue
		}
		if record == nil {
			continue
		}
		records = append(records, *record)
	}

	if err := scanner.Err(); err != nil && logger != nil {
		logger.Warn("CDX body scan stopped early", "error", err, "records", len(records))
	}

	return records
}

// decodeCDXDocument decodes a body that is one complete JSON array of rows,
// whether pretty-printed or compacted onto a single line. Bodies that are not
// valid as a whole fall back to line-by-line parsing.
func decodeCDXDocument(body string) ([][]any, bool) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "[[") {
		return nil, false
	}
	var rows [][]any
	if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// recordsFromRows converts decoded rows, the first being the header
func recordsFromRows(rows [][]any, archiveBase string, now time.Time, logger *log.Logger) []models.SnapshotRecord {
	records := make([]models.SnapshotRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		record, err := recordFromRow(row, archiveBase, now)
		if err != nil {
			if logger != nil {
				logger.Debug("Skipping CDX row", "row", i+1, "error", err)
			}
			continue
		}
		if record != nil {
			records = append(records, *record)
		}
	}
	return records
}

// normalizeCDXLine trims whitespace, a trailing comma and the outer array
// brackets of a complete JSON body.
func normalizeCDXLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ",")
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "[[") {
		line = line[1:]
	}
	if strings.HasSuffix(line, "]]") {
		line = line[:len(line)-1]
	}
	if line == "[" || line == "]" || line == "[]" {
		return ""
	}
	return line
}

// parseCDXRow decodes a single JSON row line
func parseCDXRow(line, archiveBase string, now time.Time) (*models.SnapshotRecord, error) {
	var row []any
	if err := json.Unmarshal([]byte(line), &row); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return recordFromRow(row, archiveBase, now)
}

// recordFromRow returns (nil, nil) for a well-formed row that is filtered out
func recordFromRow(row []any, archiveBase string, now time.Time) (*models.SnapshotRecord, error) {
	if len(row) < 3 {
		return nil, fmt.Errorf("short row: %d fields", len(row))
	}

	timestamp := fieldString(row[0])
	original := fieldString(row[1])
	status := fieldString(row[2])

	if !acceptedStatus[status] {
		return nil, nil
	}

	changeType, err := analysis.ClassifyChange(timestamp, now)
	if err != nil {
		return nil, err
	}

	return &models.SnapshotRecord{
		Timestamp:   timestamp,
		OriginalURL: original,
		StatusCode:  status,
		ArchiveURL:  BuildArchiveURL(archiveBase, timestamp, original),
		ChangeType:  changeType,
	}, nil
}

func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
