package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets (database password, download signing key) have no defaults and must come from the environment or config.json.
type AppConfig struct {
	// AppPort is empty until resolved; main falls back to PORT or a free port in 5000-5010.
	AppPort        string
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Working directories
	UploadDir string
	OutputDir string
	StaticDir string
	// Upload limits
	MaxUploadBytes     int64
	MaxRequestBytes    int64
	MaxFilesPerRequest int
	// Housekeeping
	FileTTLMinutes         int
	CleanupIntervalMinutes int
	RateLimitPerHour       int
	// Downloads
	DownloadSigningKey string
	// External helper used for PDF -> image conversion
	PdftoppmPath string
	// Redis for caching pdf-info results
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Database for the artifact registry and operation ledger
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides
	_ = godotenv.Load()

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and by main after the port is resolved.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// RedisEnabled reports whether a redis host has been configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

// DatabaseEnabled reports whether a MySQL connection has been configured.
func (c AppConfig) DatabaseEnabled() bool {
	return c.DatabaseURI != "" || c.DBHost != ""
}

// Limits derives the upload limits shared with clients.
func (c AppConfig) Limits() Limits {
	l := DefaultLimits()
	if c.MaxUploadBytes > 0 {
		l.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.MaxFilesPerRequest > 0 {
		l.MaxFilesPerRequest = c.MaxFilesPerRequest
	}
	return l
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	// Grouped sections first
	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerHour"); v != 0 {
			out.RateLimitPerHour = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if v := getString(app, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(app, "GinPath"); v != "" {
			out.GinPath = v
		}
	}

	if fs, ok := raw["files"].(map[string]any); ok {
		out.UploadDir = getString(fs, "UploadDir")
		out.OutputDir = getString(fs, "OutputDir")
		out.StaticDir = getString(fs, "StaticDir")
		if v := getInt(fs, "MaxUploadBytes"); v != 0 {
			out.MaxUploadBytes = int64(v)
		}
		if v := getInt(fs, "MaxRequestBytes"); v != 0 {
			out.MaxRequestBytes = int64(v)
		}
		if v := getInt(fs, "MaxFilesPerRequest"); v != 0 {
			out.MaxFilesPerRequest = v
		}
		if v := getInt(fs, "TTLMinutes"); v != 0 {
			out.FileTTLMinutes = v
		}
		if v := getInt(fs, "CleanupIntervalMinutes"); v != 0 {
			out.CleanupIntervalMinutes = v
		}
		if v := getString(fs, "PdftoppmPath"); v != "" {
			out.PdftoppmPath = v
		}
	}

	if dl, ok := raw["download"].(map[string]any); ok {
		out.DownloadSigningKey = getString(dl, "SigningKey")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.MaxRequestBytes == 0 {
		// multi-file requests may carry twice the single-file ceiling
		c.MaxRequestBytes = 2 * c.MaxUploadBytes
	}
	if c.MaxFilesPerRequest == 0 {
		c.MaxFilesPerRequest = DefaultMaxFilesPerRequest
	}
	if c.FileTTLMinutes == 0 {
		c.FileTTLMinutes = 60
	}
	if c.CleanupIntervalMinutes == 0 {
		c.CleanupIntervalMinutes = 5
	}
	if c.RateLimitPerHour == 0 {
		c.RateLimitPerHour = 100
	}
	if c.PdftoppmPath == "" {
		c.PdftoppmPath = "pdftoppm"
	}
	if c.RedisHost != "" && c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.DBHost != "" {
		if c.DBPort == "" {
			c.DBPort = "3306"
		}
		if c.DBUser == "" {
			c.DBUser = "root"
		}
		if c.DBName == "" {
			c.DBName = "pdftoolkit"
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	// PORT wins over APP_PORT, matching common PaaS conventions
	if v := getEnv("PORT", ""); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			log.Fatalf("invalid PORT environment variable: %s", v)
		}
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("UPLOAD_FOLDER", ""); v != "" {
		c.UploadDir = v
	}
	if v := getEnv("OUTPUT_FOLDER", ""); v != "" {
		c.OutputDir = v
	}
	if v := getEnv("STATIC_FOLDER", ""); v != "" {
		c.StaticDir = v
	}
	if v := getEnv("MAX_UPLOAD_BYTES", ""); v != "" {
		c.MaxUploadBytes = int64(mustParseInt(v))
	}
	if v := getEnv("MAX_REQUEST_BYTES", ""); v != "" {
		c.MaxRequestBytes = int64(mustParseInt(v))
	}
	if v := getEnv("MAX_FILES_PER_REQUEST", ""); v != "" {
		c.MaxFilesPerRequest = mustParseInt(v)
	}
	if v := getEnv("FILE_TTL_MINUTES", ""); v != "" {
		c.FileTTLMinutes = mustParseInt(v)
	}
	if v := getEnv("CLEANUP_INTERVAL_MINUTES", ""); v != "" {
		c.CleanupIntervalMinutes = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_HOUR", ""); v != "" {
		c.RateLimitPerHour = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DOWNLOAD_SIGNING_KEY", ""); v != "" {
		c.DownloadSigningKey = v
	}
	if v := getEnv("PDFTOPPM_PATH", ""); v != "" {
		c.PdftoppmPath = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
		if c.RedisPort == 0 {
			c.RedisPort = 6379
		}
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
