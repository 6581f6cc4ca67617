package client

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Candidate is a file being considered for upload.
type Candidate struct {
	Name string
	Size int64
	Type string // media type, empty when unknown
	Path string
}

// CandidateFromPath stats path and detects its media type from content.
func CandidateFromPath(path string) (Candidate, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Candidate{}, err
	}
	if st.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}
	c := Candidate{Name: filepath.Base(path), Size: st.Size(), Path: path}
	if st.Size() > 0 {
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return Candidate{}, err
		}
		// the root type means nothing matched
		if !mt.Is("application/octet-stream") {
			c.Type = bareType(mt.String())
		}
	}
	if c.Type == "" {
		c.Type = bareType(mime.TypeByExtension(filepath.Ext(path)))
	}
	return c, nil
}

// bareType drops media type parameters such as charset.
func bareType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.TrimSpace(t)
}

// ValidationResult is the verdict for one candidate.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks size against maxBytes and, when allowed is non-empty, the media type.
// Every failing check is listed.
func Validate(c Candidate, allowed []string, maxBytes int64) ValidationResult {
	var errs []string
	if c.Size > maxBytes {
		errs = append(errs, fmt.Sprintf("File size exceeds %dMB limit", maxBytes/(1024*1024)))
	}
	if len(allowed) > 0 && !slices.Contains(allowed, c.Type) {
		errs = append(errs, "File type not supported")
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
