package controllers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/utils"
)

// DownloadController serves processed files from the output folder.
type DownloadController struct {
	outputDir string
}

// NewDownloadController creates a new DownloadController instance.
func NewDownloadController(cfg config.AppConfig) *DownloadController {
	return &DownloadController{outputDir: cfg.OutputDir}
}

// Download sends outputs/<filename> as an attachment. Only plain file names are accepted.
func (d *DownloadController) Download(ctx *gin.Context) {
	name := ctx.Param("filename")
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		d.notFound(ctx)
		return
	}

	path := filepath.Join(d.outputDir, name)
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		d.notFound(ctx)
		return
	}
	ctx.FileAttachment(path, name)
}

func (d *DownloadController) notFound(ctx *gin.Context) {
	utils.Fail(ctx, http.StatusNotFound, utils.NewToolkitError(utils.CodeFileNotFound, "File not found"))
}
