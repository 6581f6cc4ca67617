package main

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/models"
	"github.com/cppla/pdftoolkit/routes"
	"github.com/cppla/pdftoolkit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			utils.Sugar.Fatalf("create %s: %v", dir, err)
		}
	}

	// PORT / APP_PORT win; otherwise take the first free port in 5000-5010
	if cfg.AppPort == "" {
		port, err := utils.FindFreePort(5000, 5010)
		if err != nil {
			utils.Sugar.Fatalf("%v; set PORT to choose one explicitly", err)
		}
		if port != 5000 {
			utils.Sugar.Warnf("port 5000 is busy, using port %d instead", port)
		}
		cfg.AppPort = strconv.Itoa(port)
		config.Set(cfg)
	}

	// Database is optional; nil keeps the ledger and artifact registry in memory only
	db, err := config.InitDatabase(cfg, &models.Artifact{}, &models.Operation{})
	if err != nil {
		utils.Sugar.Warnf("database unavailable, keeping bookkeeping in memory: %v", err)
	}

	r := routes.SetupRouter(db)

	// Start background cleanup for expired uploads and outputs (best-effort)
	stopCleaner := utils.StartCleaner(time.Duration(cfg.CleanupIntervalMinutes) * time.Minute)

	utils.Sugar.Infow("application startup",
		"upload_folder", cfg.UploadDir,
		"output_folder", cfg.OutputDir,
		"max_file_size", cfg.MaxUploadBytes,
		"port", cfg.AppPort,
	)
	if err := utils.GraceServer(":"+cfg.AppPort, r, stopCleaner); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
