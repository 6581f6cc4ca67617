package middleware

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pdftoolkit/utils"
)

// DownloadTokenRequired checks the ?token= query against the requested file name.
// With an empty secret downloads are unsigned and the middleware passes everything through.
func DownloadTokenRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if secret == "" {
			ctx.Next()
			return
		}

		tokenString := ctx.Query("token")
		if tokenString == "" {
			utils.Fail(ctx, http.StatusForbidden, utils.NewToolkitError(utils.CodeForbidden, "download token missing"))
			ctx.Abort()
			return
		}

		filename := filepath.Base(ctx.Param("filename"))
		if _, err := utils.ParseDownloadToken(secret, tokenString, filename); err != nil {
			utils.Fail(ctx, http.StatusForbidden, utils.NewToolkitError(utils.CodeForbidden, "invalid download token"))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
