package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Token lifetimes
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	// Database
	DBDriver    string // mysql | postgres
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for the token blacklist and signup throttling. Empty host disables it.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Uploads
	UploadDir   string
	UploadMaxMB int
	// Registration security
	SignupMaxPerIPPerDay int
}

var (
	cfg    AppConfig
	loaded bool
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: environment variables over config/config.json; defaults fill whatever is still unset
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("ignoring invalid config/config.json: %v", err)
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

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

// Set replaces the cached configuration. Used by tests and tools that build config in code.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort               string
		JWTSecret             string
		RateLimitPerMinute    int
		AllowedOrigins        []string
		AccessTokenTTLMinutes int
		RefreshTokenTTLHours  int
		SignupMaxPerIPPerDay  int
	} `json:"app"`
	Database struct {
		Driver      string
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
	} `json:"database"`
	Redis struct {
		RedisHost     string
		RedisPort     int
		RedisDB       int
		RedisPassword string
	} `json:"redis"`
	Log struct {
		Level      string
		Path       string
		GinMode    string
		GinPath    string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
	Upload struct {
		Dir   string
		MaxMB int
	} `json:"upload"`
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}

	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return err
	}

	*out = AppConfig{
		AppPort:               fc.App.AppPort,
		JWTSecret:             fc.App.JWTSecret,
		RateLimitPerMinute:    fc.App.RateLimitPerMinute,
		AllowedOrigins:        fc.App.AllowedOrigins,
		AccessTokenTTLMinutes: fc.App.AccessTokenTTLMinutes,
		RefreshTokenTTLHours:  fc.App.RefreshTokenTTLHours,
		SignupMaxPerIPPerDay:  fc.App.SignupMaxPerIPPerDay,
		DBDriver:              fc.Database.Driver,
		DatabaseURI:           fc.Database.DatabaseURI,
		DBHost:                fc.Database.DBHost,
		DBPort:                fc.Database.DBPort,
		DBUser:                fc.Database.DBUser,
		DBPassword:            fc.Database.DBPassword,
		DBName:                fc.Database.DBName,
		RedisHost:             fc.Redis.RedisHost,
		RedisPort:             fc.Redis.RedisPort,
		RedisDB:               fc.Redis.RedisDB,
		RedisPassword:         fc.Redis.RedisPassword,
		LogLevel:              fc.Log.Level,
		LogPath:               fc.Log.Path,
		GinMode:               fc.Log.GinMode,
		GinPath:               fc.Log.GinPath,
		LogMaxSizeMB:          fc.Log.MaxSizeMB,
		LogMaxBackups:         fc.Log.MaxBackups,
		LogMaxAgeDays:         fc.Log.MaxAgeDays,
		LogCompress:           fc.Log.Compress,
		UploadDir:             fc.Upload.Dir,
		UploadMaxMB:           fc.Upload.MaxMB,
	}
	return nil
}

// applyDefaults fills zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	dbPort := "3306"
	if c.DBDriver == "postgres" {
		dbPort = "5432"
	}

	for field, def := range map[*string]string{
		&c.AppPort:   "8080",
		&c.DBHost:    "127.0.0.1",
		&c.DBPort:    dbPort,
		&c.DBUser:    "root",
		&c.DBName:    "board",
		&c.GinMode:   "release",
		&c.GinPath:   "logs/go_gin.log",
		&c.LogLevel:  "info",
		&c.UploadDir: ".",
	} {
		if *field == "" {
			*field = def
		}
	}

	for field, def := range map[*int]int{
		&c.RateLimitPerMinute:    60,
		&c.AccessTokenTTLMinutes: 60,
		&c.RefreshTokenTTLHours:  7 * 24,
		&c.RedisPort:             6379,
		&c.LogMaxSizeMB:          100,
		&c.LogMaxBackups:         3,
		&c.LogMaxAgeDays:         7,
		&c.UploadMaxMB:           50,
		&c.SignupMaxPerIPPerDay:  5,
	} {
		if *field == 0 {
			*field = def
		}
	}

	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	strVars := map[string]*string{
		"APP_PORT":       &c.AppPort,
		"JWT_SECRET":     &c.JWTSecret,
		"DATABASE_URI":   &c.DatabaseURI,
		"DB_HOST":        &c.DBHost,
		"DB_PORT":        &c.DBPort,
		"DB_USER":        &c.DBUser,
		"DB_PASSWORD":    &c.DBPassword,
		"DB_NAME":        &c.DBName,
		"REDIS_HOST":     &c.RedisHost,
		"REDIS_PASSWORD": &c.RedisPassword,
		"GIN_MODE":       &c.GinMode,
		"GIN_PATH":       &c.GinPath,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_PATH":       &c.LogPath,
		"UPLOAD_DIR":     &c.UploadDir,
	}
	for key, field := range strVars {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	intVars := map[string]*int{
		"RATE_LIMIT_PER_MINUTE":     &c.RateLimitPerMinute,
		"ACCESS_TOKEN_TTL_MIN":      &c.AccessTokenTTLMinutes,
		"REFRESH_TOKEN_TTL_HOURS":   &c.RefreshTokenTTLHours,
		"REDIS_PORT":                &c.RedisPort,
		"REDIS_DB":                  &c.RedisDB,
		"LOG_MAX_SIZE_MB":           &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":           &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":          &c.LogMaxAgeDays,
		"UPLOAD_MAX_MB":             &c.UploadMaxMB,
		"SIGNUP_MAX_PER_IP_PER_DAY": &c.SignupMaxPerIPPerDay,
	}
	for key, field := range intVars {
		if v := os.Getenv(key); v != "" {
			*field = mustParseInt(key, v)
		}
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(key, val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value for %s=%q: %v", key, val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
