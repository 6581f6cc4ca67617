package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/controllers"
	"github.com/cppla/pdftoolkit/middleware"
	"github.com/cppla/pdftoolkit/pdfops"
	"github.com/cppla/pdftoolkit/utils"
)

// toolPages are served from static/<name>.html, falling back to the index page.
var toolPages = []string{"merge", "split", "compress", "convert", "unlock"}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Multipart parts beyond this stay on disk instead of memory
	r.MaxMultipartMemory = 8 << 20
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewAccessLogger(cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	ledger := utils.NewLedger(db)
	// Record one ledger entry per processing request
	r.Use(middleware.OperationRecorder(ledger))

	staticDir := cfg.StaticDir
	r.Static("/static", staticDir)

	index := filepath.Join(staticDir, "index.html")
	r.GET("/", func(c *gin.Context) {
		c.File(index)
	})
	for _, name := range toolPages {
		page := filepath.Join(staticDir, name+".html")
		r.GET("/"+name, func(c *gin.Context) {
			if _, err := os.Stat(page); err == nil {
				c.File(page)
				return
			}
			c.File(index)
		})
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	proc := pdfops.NewProcessor(pdfops.WithPdftoppm(cfg.PdftoppmPath))
	pdfController := controllers.NewPDFController(cfg, proc)
	downloadController := controllers.NewDownloadController(cfg)
	statsController := controllers.NewStatsController(ledger)
	configController := controllers.NewConfigController(cfg)

	api := r.Group("/api")
	// Public read-only endpoints
	api.GET("/config", configController.GetConfig)
	api.GET("/stats", statsController.GetStats)

	processing := api.Group("")
	processing.Use(middleware.RateLimitMiddleware(), middleware.BodyLimit(cfg.MaxRequestBytes, cfg.MaxUploadBytes))
	processing.POST("/merge", pdfController.Merge)
	processing.POST("/split", pdfController.Split)
	processing.POST("/compress", pdfController.Compress)
	processing.POST("/convert", pdfController.Convert)
	processing.POST("/unlock", pdfController.Unlock)
	processing.POST("/pdf-info", pdfController.Info)

	r.GET("/download/:filename", middleware.DownloadTokenRequired(cfg.DownloadSigningKey), downloadController.Download)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		// Unknown API route: JSON 404
		if strings.HasPrefix(path, "/api/") {
			utils.Fail(ctx, http.StatusNotFound, utils.NewToolkitError(utils.CodeEndpointNotFound, "API endpoint not found"))
			return
		}
		// Missing static asset stays a 404
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "static asset not found"})
			return
		}
		// Everything else falls back to the index page
		ctx.Status(http.StatusOK)
		ctx.File(index)
	})

	return r
}
