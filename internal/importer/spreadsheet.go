// Package importer is the input adapter: it turns a spreadsheet source into
// an ordered list of validated profile URLs. Invalid rows never reach the core.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/unclebandit/linkreach-backend/internal/model"
)

var profileURLPattern = regexp.MustCompile(
	`^https?://(www\.)?linkedin\.com/in/[A-Za-z0-9\-_%]+/?(\?.*)?$`,
)

// urlColumnKeywords are matched against header names to find the URL column.
var urlColumnKeywords = []string{"url", "link", "linkedin", "profile", "href"}

// ProduceURLList reads CSV data and returns the valid profile URLs in file
// order, each with its 1-based source row number. Rows that fail validation
// are dropped and counted.
func ProduceURLList(r io.Reader) ([]model.URLRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	col, start := locateURLColumn(records)

	urls := []model.URLRow{}
	invalid := 0
	for i := start; i < len(records); i++ {
		record := records[i]
		if col >= len(record) {
			invalid++
			continue
		}
		cleaned, ok := validateURL(record[col])
		if !ok {
			invalid++
			continue
		}
		urls = append(urls, model.URLRow{URL: cleaned, Row: i + 1})
	}

	return urls, invalid, nil
}

// ReadFile is the file-path convenience wrapper used by the console bot.
func ReadFile(path string) ([]model.URLRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ProduceURLList(f)
}

// locateURLColumn finds the column holding profile URLs and the first data
// row. A headerless file whose first cell is already a profile URL starts at
// row one; otherwise the header is scanned for a URL-ish column name. The URL
// check runs first because a profile URL itself contains "linkedin".
func locateURLColumn(records [][]string) (col, start int) {
	header := records[0]
	for i, cell := range header {
		if _, ok := validateURL(cell); ok {
			return i, 0
		}
	}

	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, kw := range urlColumnKeywords {
			if strings.Contains(lower, kw) {
				return i, 1
			}
		}
	}

	// No recognizable header and no URL in the first row: assume the first
	// column is data and let validation drop whatever it is.
	return 0, 0
}

// validateURL normalizes and validates one cell. Bare linkedin.com/in/ links
// get an https scheme; anything that doesn't match the profile-URL shape is
// rejected.
func validateURL(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", false
	}

	if strings.HasPrefix(cleaned, "linkedin.com/in/") ||
		strings.HasPrefix(cleaned, "www.linkedin.com/in/") {
		cleaned = "https://" + cleaned
	}

	if !profileURLPattern.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}
