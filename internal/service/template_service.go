// internal/service/template_service.go
package service

import (
	"strings"
)

// RenderTemplate substitutes {key} placeholders with their values.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderPersonal renders a note or message template for one profile,
// substituting {first_name} from the classifier-extracted display name.
func RenderPersonal(template, fullName string) string {
	return RenderTemplate(template, map[string]string{
		"first_name": FirstName(fullName),
	})
}

// FirstName extracts the first whitespace-separated token of a display name.
// A missing name falls back to a generic greeting word.
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

// TruncateNote enforces the platform's note character limit. A note is never
// dropped over length: it is cut at the last whitespace at or before the
// limit so no word is split, or hard-cut at the limit when the text has no
// whitespace to break at.
func TruncateNote(note string, limit int) string {
	if limit <= 0 {
		return note
	}
	runes := []rune(note)
	if len(runes) <= limit {
		return note
	}

	cut := string(runes[:limit])
	if idx := strings.LastIndexFunc(cut, isSpace); idx > 0 {
		return strings.TrimRight(cut[:idx], " \t\n")
	}
	return cut
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
