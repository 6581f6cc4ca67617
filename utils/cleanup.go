package utils

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/models"
)

// StartCleaner launches a background goroutine that periodically removes uploads and
// outputs older than the configured TTL, plus expired artifact rows when the database is on.
// It is best-effort and logs failures. The returned function stops the loop.
func StartCleaner(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				c := config.Get()
				ttl := time.Duration(c.FileTTLMinutes) * time.Minute
				removed := SweepExpired([]string{c.UploadDir, c.OutputDir}, ttl, now)
				removed += sweepArtifactRows(now)
				if removed > 0 {
					L().Info("cleanup removed expired files", zap.Int("count", removed))
				}
			}
		}
	}()
	return func() { close(done) }
}

// SweepExpired deletes direct children of dirs whose modification time is older than ttl.
// Missing directories are ignored.
func SweepExpired(dirs []string, ttl time.Duration, now time.Time) int {
	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= ttl {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(path); err != nil {
				L().Warn("cleanup remove failed", zap.String("path", path), zap.Error(err))
				continue
			}
			removed++
		}
	}
	return removed
}

func sweepArtifactRows(now time.Time) int {
	db := config.DB()
	if db == nil {
		return 0
	}
	var items []models.Artifact
	if err := db.Where("expire_at <= ?", now).Limit(100).Find(&items).Error; err != nil {
		L().Warn("artifact cleaner query failed", zap.Error(err))
		return 0
	}
	removed := 0
	for _, it := range items {
		if it.FilePath != "" {
			if err := os.RemoveAll(it.FilePath); err == nil {
				removed++
			}
		}
		// Remove row regardless of file deletion outcome
		if err := db.Delete(&models.Artifact{}, it.ID).Error; err != nil {
			L().Warn("artifact cleaner delete row failed", zap.Error(err))
		}
	}
	return removed
}

// RecordArtifact registers a file written by the server so the cleaner can expire it.
// It is a no-op when the database is disabled.
func RecordArtifact(path, kind string, ttl time.Duration) {
	db := config.DB()
	if db == nil {
		return
	}
	var size int64
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}
	row := models.Artifact{
		FilePath:  path,
		Filename:  filepath.Base(path),
		Kind:      kind,
		SizeBytes: size,
		ExpireAt:  time.Now().Add(ttl),
	}
	if err := db.Create(&row).Error; err != nil {
		L().Warn("record artifact failed", zap.String("path", path), zap.Error(err))
	}
}
