package casestudy

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Required column keys after header normalization. A dataset missing any of
// these is rejected outright — a partial corpus silently degrades answer
// quality without any signal to the operator.
var requiredColumns = []string{"id", "organization", "campaign", "description"}

// Optional columns mapped to named Record fields. Everything else lands in
// Record.Extra.
var namedColumns = map[string]bool{
	"id":           true,
	"organization": true,
	"campaign":     true,
	"description":  true,
	"strategy":     true,
	"results":      true,
}

// minContentLen is the embedding-text length below which a warning is logged.
// Very short content tends to produce near-duplicate embeddings.
const minContentLen = 80

// DataFormatError reports a malformed or incomplete source dataset.
// Row is 1-based counting the header as row 1; zero when the problem is not
// tied to a specific row.
type DataFormatError struct {
	// Path is the dataset file that failed to load.
	Path string
	// Row is the offending row number (1-based, header = 1), or 0.
	Row int
	// Column is the offending column key, or empty.
	Column string
	// Reason describes what was wrong.
	Reason string
}

// Error implements the error interface.
func (e *DataFormatError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("casestudy: %s: row %d, column %q: %s", e.Path, e.Row, e.Column, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("casestudy: %s: row %d: %s", e.Path, e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("casestudy: %s: column %q: %s", e.Path, e.Column, e.Reason)
	default:
		return fmt.Sprintf("casestudy: %s: %s", e.Path, e.Reason)
	}
}

// Load reads the case-study inventory CSV at path and returns the records in
// file order. Any malformed row aborts the whole load with a
// *DataFormatError — there is no skip-and-continue mode.
//
// All text fields are normalized (NFC, canonical newlines, collapsed
// whitespace runs, trimmed) before they are returned, so the same underlying
// bytes always yield byte-identical embedding text.
func Load(path string, log *slog.Logger) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("casestudy: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := parse(f, path)
	if err != nil {
		return nil, err
	}

	warnDegenerateContent(records, log)

	log.Info("case studies loaded",
		slog.String("path", path),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// parse reads CSV rows from r and converts them to records.
func parse(r io.Reader, path string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width validated against the header below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &DataFormatError{Path: path, Reason: "empty file"}
	}
	if err != nil {
		return nil, &DataFormatError{Path: path, Row: 1, Reason: err.Error()}
	}

	cols := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			return nil, &DataFormatError{Path: path, Row: 1, Reason: fmt.Sprintf("blank header in column %d", i+1)}
		}
		if prev, dup := seen[key]; dup {
			return nil, &DataFormatError{Path: path, Row: 1, Column: key,
				Reason: fmt.Sprintf("duplicate of column %d", prev+1)}
		}
		seen[key] = i
		cols[i] = key
	}

	for _, req := range requiredColumns {
		if _, ok := seen[req]; !ok {
			return nil, &DataFormatError{Path: path, Column: req, Reason: "required column missing"}
		}
	}

	var records []Record
	ids := map[string]int{}
	row := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, &DataFormatError{Path: path, Row: row, Reason: err.Error()}
		}
		if len(fields) != len(cols) {
			return nil, &DataFormatError{Path: path, Row: row,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(cols), len(fields))}
		}

		rec := Record{Extra: map[string]string{}}
		for i, raw := range fields {
			val := NormalizeText(raw)
			switch cols[i] {
			case "id":
				rec.ID = val
			case "organization":
				rec.Organization = val
			case "campaign":
				rec.Campaign = val
			case "description":
				rec.Description = val
			case "strategy":
				rec.Strategy = val
			case "results":
				rec.Results = val
			default:
				rec.Extra[cols[i]] = val
			}
		}

		if rec.ID == "" {
			return nil, &DataFormatError{Path: path, Row: row, Column: "id", Reason: "empty value"}
		}
		if prev, dup := ids[rec.ID]; dup {
			return nil, &DataFormatError{Path: path, Row: row, Column: "id",
				Reason: fmt.Sprintf("duplicate of row %d", prev)}
		}
		ids[rec.ID] = row
		if rec.Organization == "" {
			return nil, &DataFormatError{Path: path, Row: row, Column: "organization", Reason: "empty value"}
		}
		if rec.Description == "" {
			return nil, &DataFormatError{Path: path, Row: row, Column: "description", Reason: "empty value"}
		}

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &DataFormatError{Path: path, Reason: "no data rows"}
	}

	return records, nil
}

// normalizeHeader converts a raw CSV header cell into a stable column key:
// BOM stripped, lowercased, whitespace runs collapsed to single underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff") // UTF-8 BOM on the first header cell
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// NormalizeText canonicalizes a text field before it is embedded or shown:
// Unicode NFC, CRLF/CR folded to LF, intra-line whitespace runs collapsed,
// and leading/trailing whitespace trimmed. Blank-line structure is preserved
// so paragraph boundaries survive for the node splitter.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.FieldsFunc(line, unicode.IsSpace), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// warnDegenerateContent logs operator warnings for records whose embedding
// text is suspiciously short or an exact duplicate of another record's —
// either condition produces poor retrieval without failing loudly anywhere.
func warnDegenerateContent(records []Record, log *slog.Logger) {
	byContent := map[string]string{}
	for _, rec := range records {
		content := rec.EmbeddingText()
		if len(content) < minContentLen {
			log.Warn("case study has very short content",
				slog.String("id", rec.ID),
				slog.Int("length", len(content)),
			)
		}
		if first, dup := byContent[content]; dup {
			log.Warn("case studies have identical content",
				slog.String("id", rec.ID),
				slog.String("duplicate_of", first),
			)
			continue
		}
		byContent[content] = rec.ID
	}
}
