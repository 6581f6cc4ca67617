package utils

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pdftoolkit/config"
)

type part struct {
	name    string
	content []byte
}

// fileHeaders builds real multipart headers by round-tripping a request body.
func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		w, err := mw.CreateFormFile("files", p.name)
		require.NoError(t, err)
		_, err = w.Write(p.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["files"]
}

var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"my report (1).pdf":   "my_report_1.pdf",
		"../../etc/passwd":    "etc_passwd",
		"<b>bold</b>.pdf":     "bold.pdf",
		"ünïcödé.pdf":         "unicode.pdf",
		"...":                 "",
		"dir\\sub\\file.pdf":  "dir_sub_file.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
	long := strings.Repeat("a", 300) + ".pdf"
	assert.Len(t, SecureFilename(long), 255)
	assert.True(t, strings.HasSuffix(SecureFilename(long), ".pdf"))
}

func TestDangerousPattern(t *testing.T) {
	assert.Equal(t, "../", DangerousPattern("../x.pdf"))
	assert.Equal(t, "javascript:", DangerousPattern("JavaScript:alert.pdf"))
	assert.Equal(t, "", DangerousPattern("fine.pdf"))
}

func TestValidateUpload(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxUploadBytes = 64

	hs := fileHeaders(t,
		part{"doc.pdf", pdfBytes},
		part{"photo.png", pdfBytes},
		part{"big.pdf", bytes.Repeat([]byte("x"), 65)},
		part{"<script>x.pdf", pdfBytes},
	)

	up, err := ValidateUpload(hs[0], limits.PDFExtensions, limits)
	require.Nil(t, err)
	assert.Equal(t, "doc.pdf", up.Filename)
	assert.Equal(t, ".pdf", up.Extension)
	assert.Equal(t, "application/pdf", up.MediaType)

	_, err = ValidateUpload(hs[1], limits.PDFExtensions, limits)
	require.NotNil(t, err)
	assert.Equal(t, CodeInvalidExtension, err.Code)

	_, err = ValidateUpload(hs[2], limits.PDFExtensions, limits)
	require.NotNil(t, err)
	assert.Equal(t, CodeFileTooLarge, err.Code)
	assert.Equal(t, "File size (65 bytes) exceeds maximum allowed size (64 bytes)", err.Message)

	_, err = ValidateUpload(hs[3], limits.PDFExtensions, limits)
	require.NotNil(t, err)
	assert.Equal(t, CodeSecurityViolation, err.Code)

	_, err = ValidateUpload(nil, nil, limits)
	require.NotNil(t, err)
	assert.Equal(t, CodeNoFile, err.Code)
}

func TestValidateUploads(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxUploadBytes = 40
	limits.MaxFilesPerRequest = 3

	t.Run("per file problems", func(t *testing.T) {
		hs := fileHeaders(t, part{"a.pdf", pdfBytes[:10]}, part{"b.txt", pdfBytes[:10]}, part{"c.pdf", pdfBytes[:10]})
		valid, problems, err := ValidateUploads(hs, limits.PDFExtensions, limits)
		require.Nil(t, err)
		assert.Len(t, valid, 2)
		require.Len(t, problems, 1)
		assert.True(t, strings.HasPrefix(problems[0], "File 2: "), problems[0])
	})

	t.Run("too many", func(t *testing.T) {
		hs := fileHeaders(t, part{"a.pdf", nil}, part{"b.pdf", nil}, part{"c.pdf", nil}, part{"d.pdf", nil})
		_, _, err := ValidateUploads(hs, limits.PDFExtensions, limits)
		require.NotNil(t, err)
		assert.Equal(t, CodeTooManyFiles, err.Code)
	})

	t.Run("total too large", func(t *testing.T) {
		chunk := bytes.Repeat([]byte("x"), 30)
		hs := fileHeaders(t, part{"a.pdf", chunk}, part{"b.pdf", chunk}, part{"c.pdf", chunk})
		_, _, err := ValidateUploads(hs, limits.PDFExtensions, limits)
		require.NotNil(t, err)
		assert.Equal(t, CodeTotalSizeTooLarge, err.Code)
	})

	t.Run("none", func(t *testing.T) {
		_, _, err := ValidateUploads(nil, limits.PDFExtensions, limits)
		require.NotNil(t, err)
		assert.Equal(t, CodeNoFiles, err.Code)
	})
}

func TestClassifyProcessingError(t *testing.T) {
	_, statErr := os.Stat(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, CodeFileNotFound, ClassifyProcessingError(statErr).Code)
	assert.Equal(t, CodePermissionDenied, ClassifyProcessingError(fmt.Errorf("wrap: %w", os.ErrPermission)).Code)
	assert.Equal(t, CodeUnlockFailed, ClassifyProcessingError(errors.New("pdfcpu: please provide the correct password")).Code)
	assert.Equal(t, CodeProcessing, ClassifyProcessingError(errors.New("boom")).Code)
	assert.Nil(t, ClassifyProcessingError(nil))

	te := NewToolkitError(CodeMergeFailed, "Failed to merge PDFs")
	assert.Same(t, te, AsToolkitError(fmt.Errorf("ctx: %w", te)))
	assert.Equal(t, http.StatusOK, te.HTTPStatus())
	assert.Equal(t, http.StatusTeapot, te.WithStatus(http.StatusTeapot).HTTPStatus())
}

func TestDownloadToken(t *testing.T) {
	token, err := GenerateDownloadToken("k", "merged_1.pdf", time.Minute)
	require.NoError(t, err)

	claims, err := ParseDownloadToken("k", token, "merged_1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "merged_1.pdf", claims.Subject)

	_, err = ParseDownloadToken("k", token, "other.pdf")
	assert.Error(t, err)
	_, err = ParseDownloadToken("wrong", token, "merged_1.pdf")
	assert.Error(t, err)

	expired, err := GenerateDownloadToken("k", "a.pdf", -time.Minute)
	require.NoError(t, err)
	_, err = ParseDownloadToken("k", expired, "a.pdf")
	assert.Error(t, err)

	_, err = GenerateDownloadToken("", "a.pdf", time.Minute)
	assert.Error(t, err)
}

func TestSweepExpired(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := filepath.Join(dir, "old.pdf")
	oldDir := filepath.Join(dir, "split_old")
	fresh := filepath.Join(dir, "fresh.pdf")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(oldDir, 0o755))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(oldDir, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	removed := SweepExpired([]string{dir, filepath.Join(dir, "missing")}, time.Hour, now)
	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, old)
	assert.NoDirExists(t, oldDir)
	assert.FileExists(t, fresh)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(strings.NewReader("same"))
	require.NoError(t, err)
	b, err := Fingerprint(strings.NewReader("same"))
	require.NoError(t, err)
	c, err := Fingerprint(strings.NewReader("other"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort(20000, 20100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, 20000)
	assert.LessOrEqual(t, port, 20100)
}
