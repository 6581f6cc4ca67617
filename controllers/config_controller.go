package controllers

import (
	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/pdfops"
	"github.com/cppla/pdftoolkit/utils"
	"github.com/gin-gonic/gin"
)

// ConfigController serves the limits and options the pages and clients need.
type ConfigController struct {
	cfg config.AppConfig
}

func NewConfigController(cfg config.AppConfig) *ConfigController { return &ConfigController{cfg: cfg} }

// GetConfig returns upload limits and processing options.
func (c *ConfigController) GetConfig(ctx *gin.Context) {
	limits := c.cfg.Limits()
	utils.Success(ctx, gin.H{
		"limits":              limits,
		"max_upload_mb":       limits.MaxUploadMB(),
		"compression_levels":  []string{pdfops.LevelLow, pdfops.LevelMedium, pdfops.LevelHigh},
		"image_formats":       []string{"PNG", "JPEG"},
		"dpi_options":         []int{72, 150, 200, 300},
		"rate_limit_per_hour": c.cfg.RateLimitPerHour,
		"signed_downloads":    c.cfg.DownloadSigningKey != "",
	})
}
