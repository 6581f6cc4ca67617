package routes

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/pdfops/pdftest"
	"github.com/cppla/pdftoolkit/utils"
)

type env struct {
	router *gin.Engine
	cfg    config.AppConfig
	src    string
}

func setup(t *testing.T, mutate ...func(*config.AppConfig)) *env {
	t.Helper()
	root := t.TempDir()
	static := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>PDF Toolkit</html>"), 0o644))

	cfg := config.AppConfig{
		GinMode:            "test",
		GinPath:            filepath.Join(root, "logs", "gin.log"),
		AllowedOrigins:     []string{"*"},
		UploadDir:          filepath.Join(root, "uploads"),
		OutputDir:          filepath.Join(root, "outputs"),
		StaticDir:          static,
		MaxUploadBytes:     config.DefaultMaxUploadBytes,
		MaxRequestBytes:    2 * config.DefaultMaxUploadBytes,
		MaxFilesPerRequest: config.DefaultMaxFilesPerRequest,
		FileTTLMinutes:     60,
		RateLimitPerHour:   10000,
		PdftoppmPath:       filepath.Join(root, "no-pdftoppm"),
		LogLevel:           "error",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	config.Set(cfg)
	return &env{router: SetupRouter(nil), cfg: cfg, src: t.TempDir()}
}

type upload struct {
	field string
	path  string
}

func (e *env) post(t *testing.T, url string, files []upload, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, filepath.Base(f.path))
		require.NoError(t, err)
		data, err := os.ReadFile(f.path)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) get(url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func requireOK(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["success"], body)
	return body
}

func requireFailure(t *testing.T, w *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	require.Equal(t, status, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, code, body["error_code"], body)
	assert.NotEmpty(t, body["error"])
	return body
}

func TestMerge(t *testing.T) {
	e := setup(t)
	a := pdftest.PDF(t, e.src, "a.pdf", 2)
	b := pdftest.PDF(t, e.src, "b.pdf", 3)

	body := requireOK(t, e.post(t, "/api/merge", []upload{{"files", a}, {"files", b}}, map[string]string{"page_ranges": "1;2-3"}))
	assert.EqualValues(t, 2, body["files_merged"])
	filename := body["filename"].(string)
	assert.True(t, strings.HasPrefix(filename, "merged_"))
	assert.Equal(t, "/download/"+filename, body["download_url"])

	w := e.get(body["download_url"].(string))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), filename)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestProcessingCreatesWorkingFolders(t *testing.T) {
	e := setup(t)
	for _, dir := range []string{e.cfg.UploadDir, e.cfg.OutputDir} {
		_, err := os.Stat(dir)
		require.True(t, os.IsNotExist(err), "%s should not exist yet", dir)
	}
	in := pdftest.PDF(t, e.src, "c.pdf", 1)

	body := requireOK(t, e.post(t, "/api/compress", []upload{{"file", in}}, nil))
	assert.FileExists(t, filepath.Join(e.cfg.OutputDir, body["filename"].(string)))
	assert.DirExists(t, e.cfg.UploadDir)
}

func TestMergeNeedsTwoFiles(t *testing.T) {
	e := setup(t)
	a := pdftest.PDF(t, e.src, "a.pdf", 1)

	requireFailure(t, e.post(t, "/api/merge", []upload{{"files", a}}, nil), http.StatusOK, utils.CodeInsufficientFiles)
	requireFailure(t, e.post(t, "/api/merge", nil, nil), http.StatusOK, utils.CodeNoFiles)

	txt := filepath.Join(e.src, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	requireFailure(t, e.post(t, "/api/merge", []upload{{"files", txt}, {"files", txt}}, nil), http.StatusOK, utils.CodeValidation)
}

func TestSplit(t *testing.T) {
	e := setup(t)
	doc := pdftest.PDF(t, e.src, "doc.pdf", 4)

	body := requireOK(t, e.post(t, "/api/split", []upload{{"file", doc}}, map[string]string{"split_type": "ranges", "page_ranges": "1-2,4"}))
	assert.EqualValues(t, 2, body["files_created"])
	filename := body["filename"].(string)
	assert.True(t, strings.HasSuffix(filename, ".zip"))

	zr, err := zip.OpenReader(filepath.Join(e.cfg.OutputDir, filename))
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"range_1.pdf", "page_4.pdf"}, names)

	// the work directory is removed once zipped
	entries, err := os.ReadDir(e.cfg.OutputDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, entry.IsDir(), entry.Name())
	}

	body = requireOK(t, e.post(t, "/api/split", []upload{{"file", doc}}, map[string]string{"split_type": "pages", "pages_per_file": "3"}))
	assert.EqualValues(t, 2, body["files_created"])

	requireFailure(t, e.post(t, "/api/split", []upload{{"file", doc}}, map[string]string{"split_type": "ranges"}), http.StatusOK, utils.CodeInvalidPageRange)
	requireFailure(t, e.post(t, "/api/split", []upload{{"file", doc}}, map[string]string{"split_type": "ranges", "page_ranges": "a-b"}), http.StatusOK, utils.CodeInvalidPageRange)
	requireFailure(t, e.post(t, "/api/split", nil, nil), http.StatusOK, utils.CodeNoFile)
}

func TestCompress(t *testing.T) {
	e := setup(t)
	doc := pdftest.PDF(t, e.src, "doc.pdf", 2)

	body := requireOK(t, e.post(t, "/api/compress", []upload{{"file", doc}}, map[string]string{"compression_level": "high"}))
	assert.Equal(t, "high", body["compression_level"])
	assert.Greater(t, body["original_size"].(float64), 0.0)
	assert.Greater(t, body["compressed_size"].(float64), 0.0)
	assert.Contains(t, body, "compression_ratio")
	assert.Contains(t, body, "size_reduction")
}

func TestConvert(t *testing.T) {
	e := setup(t)
	png := pdftest.PNG(t, e.src, "one.png", 30, 30)
	bmp := pdftest.BMP(t, e.src, "two.bmp", 30, 30)

	body := requireOK(t, e.post(t, "/api/convert", []upload{{"files", png}, {"files", bmp}}, map[string]string{"conversion_type": "images_to_pdf"}))
	assert.EqualValues(t, 2, body["images_processed"])
	assert.True(t, strings.HasPrefix(body["filename"].(string), "converted_"))

	requireFailure(t, e.post(t, "/api/convert", []upload{{"files", png}}, map[string]string{"conversion_type": "sideways"}), http.StatusOK, utils.CodeInvalidConversion)

	// the helper binary is not installed in the test environment
	doc := pdftest.PDF(t, e.src, "doc.pdf", 1)
	requireFailure(t, e.post(t, "/api/convert", []upload{{"file", doc}}, map[string]string{"conversion_type": "pdf_to_images"}), http.StatusOK, utils.CodeConvertFailed)
}

func TestUnlock(t *testing.T) {
	e := setup(t)
	locked := pdftest.EncryptedPDF(t, e.src, "locked.pdf", 2, "s3cret")

	requireFailure(t, e.post(t, "/api/unlock", []upload{{"file", locked}}, map[string]string{"password": "nope"}), http.StatusOK, utils.CodeUnlockFailed)

	body := requireOK(t, e.post(t, "/api/unlock", []upload{{"file", locked}}, map[string]string{"password": "s3cret"}))
	assert.EqualValues(t, 2, body["pages_unlocked"])
	assert.True(t, strings.HasPrefix(body["filename"].(string), "unlocked_"))

	common := pdftest.EncryptedPDF(t, e.src, "common.pdf", 1, "letmein")
	body = requireOK(t, e.post(t, "/api/unlock", []upload{{"file", common}}, nil))
	assert.Equal(t, "letmein", body["password_found"])
}

func TestPDFInfo(t *testing.T) {
	e := setup(t)
	doc := pdftest.PDF(t, e.src, "doc.pdf", 3)

	body := requireOK(t, e.post(t, "/api/pdf-info", []upload{{"file", doc}}, nil))
	info := body["info"].(map[string]any)
	assert.EqualValues(t, 3, info["pages"])
	assert.Equal(t, false, info["encrypted"])

	locked := pdftest.EncryptedPDF(t, e.src, "locked.pdf", 2, "s3cret")
	body = requireOK(t, e.post(t, "/api/pdf-info", []upload{{"file", locked}}, nil))
	info = body["info"].(map[string]any)
	assert.Equal(t, true, info["encrypted"])
	assert.EqualValues(t, 0, info["pages"])
}

func TestUploadRejections(t *testing.T) {
	e := setup(t, func(c *config.AppConfig) {
		c.MaxUploadBytes = 1024
		c.MaxRequestBytes = 4096
	})

	big := filepath.Join(e.src, "big.pdf")
	require.NoError(t, os.WriteFile(big, bytes.Repeat([]byte("x"), 2048), 0o644))
	requireFailure(t, e.post(t, "/api/compress", []upload{{"file", big}}, nil), http.StatusOK, utils.CodeFileTooLarge)

	huge := filepath.Join(e.src, "huge.pdf")
	require.NoError(t, os.WriteFile(huge, bytes.Repeat([]byte("x"), 8192), 0o644))
	requireFailure(t, e.post(t, "/api/compress", []upload{{"file", huge}}, nil), http.StatusRequestEntityTooLarge, utils.CodeFileTooLarge)

	png := pdftest.PNG(t, e.src, "pic.png", 4, 4)
	requireFailure(t, e.post(t, "/api/compress", []upload{{"file", png}}, nil), http.StatusOK, utils.CodeInvalidExtension)
}

func TestRateLimited(t *testing.T) {
	e := setup(t, func(c *config.AppConfig) { c.RateLimitPerHour = 1 })

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/compress", nil)
		r.RemoteAddr = "203.0.113.77:4000"
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, r)
		return w
	}
	requireFailure(t, req(), http.StatusOK, utils.CodeNoFile)
	requireFailure(t, req(), http.StatusTooManyRequests, utils.CodeRateLimited)
}

func TestDownload(t *testing.T) {
	e := setup(t)
	requireFailure(t, e.get("/download/missing.pdf"), http.StatusNotFound, utils.CodeFileNotFound)
}

func TestSignedDownload(t *testing.T) {
	e := setup(t, func(c *config.AppConfig) { c.DownloadSigningKey = "secret" })
	doc := pdftest.PDF(t, e.src, "doc.pdf", 1)

	body := requireOK(t, e.post(t, "/api/compress", []upload{{"file", doc}}, nil))
	url := body["download_url"].(string)
	require.Contains(t, url, "?token=")

	assert.Equal(t, http.StatusOK, e.get(url).Code)
	bare, _, _ := strings.Cut(url, "?")
	requireFailure(t, e.get(bare), http.StatusForbidden, utils.CodeForbidden)
}

func TestPagesAndFallbacks(t *testing.T) {
	e := setup(t)

	for _, path := range []string{"/", "/merge", "/somewhere/else"} {
		w := e.get(path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "PDF Toolkit", path)
	}

	requireFailure(t, e.get("/api/nope"), http.StatusNotFound, utils.CodeEndpointNotFound)
	assert.Equal(t, http.StatusNotFound, e.get("/static/missing.js").Code)

	body := requireOK(t, e.get("/health"))
	assert.Equal(t, "ok", body["status"])
}

func TestConfigAndStats(t *testing.T) {
	e := setup(t)

	body := requireOK(t, e.get("/api/config"))
	assert.EqualValues(t, 16, body["max_upload_mb"])
	assert.Equal(t, false, body["signed_downloads"])
	limits := body["limits"].(map[string]any)
	assert.EqualValues(t, config.DefaultMaxFilesPerRequest, limits["max_files_per_request"])

	doc := pdftest.PDF(t, e.src, "doc.pdf", 1)
	requireOK(t, e.post(t, "/api/compress", []upload{{"file", doc}}, nil))
	requireFailure(t, e.post(t, "/api/merge", []upload{{"files", doc}}, nil), http.StatusOK, utils.CodeInsufficientFiles)

	w := e.get("/api/stats")
	stats := requireOK(t, w)["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 1, stats["failed"])
	_, err := io.Copy(io.Discard, w.Body)
	require.NoError(t, err)
}
