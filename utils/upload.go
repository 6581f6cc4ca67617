package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/config"
)

// Upload is a multipart file that passed validation.
type Upload struct {
	Header    *multipart.FileHeader
	Filename  string // sanitised client file name
	Size      int64
	Extension string
	MediaType string // sniffed from content
}

// ValidateUpload checks a single uploaded file against the extension allow-list and size ceiling.
func ValidateUpload(fh *multipart.FileHeader, allowedExt []string, limits config.Limits) (*Upload, *ToolkitError) {
	if fh == nil || fh.Filename == "" {
		return nil, ValidationError(CodeNoFile, "No file provided")
	}

	if p := DangerousPattern(fh.Filename); p != "" {
		L().Warn("dangerous file name rejected", zap.String("filename", fh.Filename), zap.String("pattern", p))
		return nil, SecurityError(fmt.Sprintf("Dangerous pattern detected in filename: %s", p))
	}

	name := SecureFilename(fh.Filename)
	if name == "" {
		return nil, ValidationError(CodeInvalidFilename, "Invalid filename")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if len(allowedExt) > 0 && !slices.Contains(allowedExt, ext) {
		return nil, ValidationError(CodeInvalidExtension,
			fmt.Sprintf("File extension '%s' not allowed. Allowed: %s", ext, strings.Join(allowedExt, ", ")))
	}

	if fh.Size > limits.MaxUploadBytes {
		return nil, ValidationError(CodeFileTooLarge,
			fmt.Sprintf("File size (%d bytes) exceeds maximum allowed size (%d bytes)", fh.Size, limits.MaxUploadBytes))
	}

	up := &Upload{Header: fh, Filename: name, Size: fh.Size, Extension: ext}
	up.MediaType = sniff(fh)
	if up.MediaType != "" && !slices.Contains(limits.MediaTypes(), up.MediaType) {
		// content does not match any accepted type; processing will decide
		L().Warn("suspicious MIME type", zap.String("mime", up.MediaType), zap.String("filename", name))
	}
	return up, nil
}

// ValidateUploads validates a multi-file request. Per-file problems are collected as
// "File <i>: <message>"; request level problems are returned as the error.
func ValidateUploads(files []*multipart.FileHeader, allowedExt []string, limits config.Limits) ([]*Upload, []string, *ToolkitError) {
	if len(files) == 0 {
		return nil, nil, ValidationError(CodeNoFiles, "No files provided")
	}
	if len(files) > limits.MaxFilesPerRequest {
		return nil, nil, ValidationError(CodeTooManyFiles,
			fmt.Sprintf("Too many files (%d). Maximum allowed: %d", len(files), limits.MaxFilesPerRequest))
	}

	var valid []*Upload
	var problems []string
	var total int64
	for i, fh := range files {
		up, err := ValidateUpload(fh, allowedExt, limits)
		if err != nil {
			problems = append(problems, fmt.Sprintf("File %d: %s", i+1, err.Message))
			continue
		}
		valid = append(valid, up)
		total += up.Size
	}

	if total > 2*limits.MaxUploadBytes {
		return nil, problems, ValidationError(CodeTotalSizeTooLarge, fmt.Sprintf("Total file size (%d bytes) too large", total))
	}
	return valid, problems, nil
}

// SaveUpload stores up in dir under a unique name and returns the path.
func SaveUpload(ctx *gin.Context, up *Upload, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+"_"+up.Filename)
	if err := ctx.SaveUploadedFile(up.Header, path); err != nil {
		return "", err
	}
	return path, nil
}

func sniff(fh *multipart.FileHeader) string {
	f, err := fh.Open()
	if err != nil {
		return ""
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return ""
	}
	// drop parameters such as "; charset=utf-8"
	media, _, _ := strings.Cut(mt.String(), ";")
	return media
}
