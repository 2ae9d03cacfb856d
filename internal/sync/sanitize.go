package sync

import (
	"strings"
	"unicode"
)

// maxNameLength bounds sanitized names so path limits hold on every
// platform the export may be copied to.
const maxNameLength = 200

// invalid on at least one of Windows, macOS or Linux
const invalidNameChars = `<>:"/\|?*`

// SanitizeName turns a remote title into a filesystem-safe file or
// directory name: illegal characters become underscores, control
// characters are dropped, surrounding spaces and dots are trimmed and the
// result is capped at a safe length. An empty result becomes "untitled".
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			// drop
		case strings.ContainsRune(invalidNameChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), " .")

	if runes := []rune(cleaned); len(runes) > maxNameLength {
		cleaned = strings.Trim(string(runes[:maxNameLength]), " .")
	}

	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}
