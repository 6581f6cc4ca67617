package utils

import "github.com/gin-gonic/gin"

// Respond writes the envelope with success set and any extra fields merged in.
func Respond(ctx *gin.Context, status int, success bool, data gin.H) {
	body := gin.H{"success": success}
	for k, v := range data {
		body[k] = v
	}
	ctx.JSON(status, body)
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data gin.H) {
	Respond(ctx, 200, true, data)
}

// Fail writes a failure envelope carrying the error message and code.
func Fail(ctx *gin.Context, status int, e *ToolkitError) {
	if status == 0 {
		status = e.HTTPStatus()
	}
	ctx.Set(ContextErrorCodeKey, e.Code)
	Respond(ctx, status, false, gin.H{
		"error":      e.Message,
		"error_code": e.Code,
	})
}

// Error reports err as a failure, classifying non toolkit errors first.
func Error(ctx *gin.Context, err error) {
	te := AsToolkitError(err)
	if te == nil {
		te = NewToolkitError(CodeInternal, "unknown error")
	}
	if te.Err != nil && Sugar != nil {
		Sugar.Warnf("request %s failed: %v", ctx.Request.URL.Path, te.Err)
	}
	Fail(ctx, 0, te)
}

// Context keys shared by handlers and middleware.
const (
	ContextErrorCodeKey = "toolkit_error_code"
	ContextFileCountKey = "toolkit_file_count"
	ContextOperationKey = "toolkit_operation"
)
