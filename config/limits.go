package config

import (
	"path/filepath"
	"slices"
	"strings"
)

// Domain constants shared by the server, the client library and the CLIs.
const (
	ContentTypePDF            = "application/pdf"
	DefaultMaxUploadBytes     = int64(16 * 1024 * 1024) // 16 MiB
	DefaultMaxFilesPerRequest = 10
)

// Limits is the immutable set of upload constraints. It is built once at start-up and
// passed by value to every component that validates files.
type Limits struct {
	MaxUploadBytes     int64    `json:"max_upload_bytes"`
	MaxFilesPerRequest int      `json:"max_files_per_request"`
	PDFTypes           []string `json:"pdf_types"`
	ImageTypes         []string `json:"image_types"`
	PDFExtensions      []string `json:"pdf_extensions"`
	ImageExtensions    []string `json:"image_extensions"`
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxUploadBytes:     DefaultMaxUploadBytes,
		MaxFilesPerRequest: DefaultMaxFilesPerRequest,
		PDFTypes:           []string{ContentTypePDF},
		ImageTypes:         []string{"image/jpeg", "image/png", "image/bmp", "image/tiff", "image/gif"},
		PDFExtensions:      []string{".pdf"},
		ImageExtensions:    []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif"},
	}
}

// MaxUploadMB is the ceiling in whole megabytes, used in human readable messages.
func (l Limits) MaxUploadMB() int64 {
	return l.MaxUploadBytes / (1024 * 1024)
}

// MediaTypes returns every accepted media type (PDF first).
func (l Limits) MediaTypes() []string {
	out := make([]string, 0, len(l.PDFTypes)+len(l.ImageTypes))
	out = append(out, l.PDFTypes...)
	return append(out, l.ImageTypes...)
}

// Extensions returns every accepted extension (PDF first).
func (l Limits) Extensions() []string {
	out := make([]string, 0, len(l.PDFExtensions)+len(l.ImageExtensions))
	out = append(out, l.PDFExtensions...)
	return append(out, l.ImageExtensions...)
}

// IsPDFName reports whether name carries a PDF extension.
func (l Limits) IsPDFName(name string) bool {
	return slices.Contains(l.PDFExtensions, strings.ToLower(filepath.Ext(name)))
}

// IsImageName reports whether name carries an image extension.
func (l Limits) IsImageName(name string) bool {
	return slices.Contains(l.ImageExtensions, strings.ToLower(filepath.Ext(name)))
}
