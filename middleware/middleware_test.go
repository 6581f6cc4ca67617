package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pdftoolkit/models"
	"github.com/cppla/pdftoolkit/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func resetLimiters() {
	limitersMu.Lock()
	limiters = map[string]*rateLimiter{}
	limitersMu.Unlock()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRateLimitPerHour(t *testing.T) {
	resetLimiters()
	t.Cleanup(resetLimiters)

	r := gin.New()
	r.POST("/api/merge", RateLimitPerHour(2), func(c *gin.Context) { utils.Success(c, nil) })

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/merge", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	w := send("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, utils.CodeRateLimited, body["error_code"])

	// buckets are per client address
	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestGetLimiterDropsIdleBuckets(t *testing.T) {
	resetLimiters()
	t.Cleanup(resetLimiters)

	first := getLimiter("stale", 1, 1)
	first.expires = time.Now().Add(-time.Second)
	getLimiter("fresh", 1, 1)

	limitersMu.Lock()
	_, ok := limiters["stale"]
	limitersMu.Unlock()
	assert.False(t, ok)
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/upload", BodyLimit(16, 8<<20), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			require.True(t, IsBodyTooLarge(err))
			TooLarge(c)
			return
		}
		utils.Success(c, nil)
	})

	t.Run("declared length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 32)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		body := decode(t, w)
		assert.Equal(t, utils.CodeFileTooLarge, body["error_code"])
		assert.Equal(t, "File too large. Maximum size is 8MB", body["error"])
	})

	t.Run("chunked body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", io.NopCloser(strings.NewReader(strings.Repeat("x", 32))))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "File too large. Maximum size is 8MB", decode(t, w)["error"])
	})

	t.Run("within limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	assert.False(t, IsBodyTooLarge(nil))
}

func TestDownloadTokenRequired(t *testing.T) {
	const secret = "signing-key"
	r := gin.New()
	r.GET("/download/:filename", DownloadTokenRequired(secret), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	get := func(url string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		return w
	}

	w := get("/download/merged_a.pdf")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, utils.CodeForbidden, decode(t, w)["error_code"])

	other, err := utils.GenerateDownloadToken(secret, "other.pdf", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get("/download/merged_a.pdf?token="+other).Code)

	good, err := utils.GenerateDownloadToken(secret, "merged_a.pdf", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get("/download/merged_a.pdf?token="+good).Code)

	open := gin.New()
	open.GET("/download/:filename", DownloadTokenRequired(""), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/x.pdf", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type recordingLedger struct {
	ops []string
	ok  []bool
}

func (l *recordingLedger) Record(_ context.Context, op models.Operation) error {
	l.ops = append(l.ops, op.Kind+":"+op.ErrorCode)
	l.ok = append(l.ok, op.Success)
	return nil
}

func (l *recordingLedger) Summary(context.Context) (utils.LedgerSummary, error) {
	return utils.LedgerSummary{}, nil
}

func TestOperationRecorder(t *testing.T) {
	ledger := &recordingLedger{}
	r := gin.New()
	r.Use(OperationRecorder(ledger))
	r.POST("/api/merge", func(c *gin.Context) {
		c.Set(utils.ContextOperationKey, "merge")
		utils.Fail(c, 0, utils.NewToolkitError(utils.CodeInsufficientFiles, "At least 2 PDF files are required for merging"))
	})
	r.POST("/api/compress", func(c *gin.Context) {
		c.Set(utils.ContextOperationKey, "compress")
		utils.Success(c, nil)
	})
	r.GET("/api/config", func(c *gin.Context) { utils.Success(c, nil) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/merge", nil),
		httptest.NewRequest(http.MethodPost, "/api/compress", nil),
		httptest.NewRequest(http.MethodGet, "/api/config", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, []string{"merge:" + utils.CodeInsufficientFiles, "compress:"}, ledger.ops)
	assert.Equal(t, []bool{false, true}, ledger.ok)
}
