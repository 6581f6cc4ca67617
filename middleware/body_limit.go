package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pdftoolkit/utils"
)

// BodyLimit rejects requests whose body exceeds maxBytes with 413 FILE_TOO_LARGE.
// Declared lengths are refused up front; chunked bodies are capped while reading.
func BodyLimit(maxBytes, perFileBytes int64) gin.HandlerFunc {
	msg := fmt.Sprintf("File too large. Maximum size is %dMB", perFileBytes/(1024*1024))
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > maxBytes {
			utils.Fail(ctx, http.StatusRequestEntityTooLarge, utils.NewToolkitError(utils.CodeFileTooLarge, msg))
			ctx.Abort()
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
		ctx.Set(bodyLimitMessageKey, msg)
		ctx.Next()
	}
}

const bodyLimitMessageKey = "body_limit_message"

// IsBodyTooLarge reports whether err was raised by the BodyLimit reader.
func IsBodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// multipart parsing does not always wrap the reader error
	return strings.Contains(err.Error(), "request body too large")
}

// TooLarge answers 413 using the message prepared by BodyLimit.
func TooLarge(ctx *gin.Context) {
	msg := ctx.GetString(bodyLimitMessageKey)
	if msg == "" {
		msg = "File too large"
	}
	utils.Fail(ctx, http.StatusRequestEntityTooLarge, utils.NewToolkitError(utils.CodeFileTooLarge, msg))
}
