package utils

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var sanitizer = bluemonday.StrictPolicy()

// DangerousPatterns are rejected anywhere in an uploaded file name.
var DangerousPatterns = []string{
	"../", `..\`, "/etc/", "/proc/", "/sys/", `C:\Windows\`,
	"<script", "javascript:", "data:", "vbscript:", "onload=", "onerror=",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Sanitize strips every HTML element from input and returns plain text.
func Sanitize(input string) string {
	return html.UnescapeString(sanitizer.Sanitize(input))
}

// DangerousPattern returns the first dangerous pattern found in name, or "".
func DangerousPattern(name string) string {
	lower := strings.ToLower(name)
	for _, p := range DangerousPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

// SecureFilename reduces name to a flat ASCII file name safe to store on disk.
// It returns "" when nothing usable is left.
func SecureFilename(name string) string {
	name = Sanitize(name)
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(name))
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}
	return name
}
