package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	MongoDatabase  string
	PostgresURI    string // Optional: recovery audit log is disabled when empty
	RedisURI       string // Optional: popular-search leaderboard falls back to Mongo when empty
	EncryptionKey  string // Optional: seals the local identity cache when set
	Port           string
	AllowedOrigins []string // CORS: origins of the app shell / webview
	Environment    string   // ENV: production, development, etc.

	// Local durable storage for the identity cache
	DataDir string

	// Device information handed over by the mobile shell. When DeviceID is
	// empty the host hardware UUID is used instead.
	FingerprintMode string // "device_id" (default) or "composite"
	DeviceID        string
	DeviceModel     string
	OSVersion       string
	AppVersion      string
	BuildNumber     string
	Platform        string

	// Backend readiness wait (bounded retry before each remote operation)
	ReadyRetries int
	ReadyDelay   time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:8081"}
	}

	mode := strings.ToLower(strings.TrimSpace(getEnv("FINGERPRINT_MODE", "device_id")))
	if mode != "device_id" && mode != "composite" {
		mode = "device_id"
	}

	mongoURI := getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/wayfarer"))

	return &Config{
		MongoURI:        mongoURI,
		MongoDatabase:   getEnv("MONGO_DB", databaseFromURI(mongoURI, "wayfarer")),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		EncryptionKey:   getEnv("ENCRYPTION_KEY", ""),
		Port:            getEnv("PORT", "8787"),
		AllowedOrigins:  allowedOrigins,
		Environment:     env,
		DataDir:         getEnv("DATA_DIR", defaultDataDir()),
		FingerprintMode: mode,
		DeviceID:        getEnv("DEVICE_ID", ""),
		DeviceModel:     getEnv("DEVICE_MODEL", ""),
		OSVersion:       getEnv("OS_VERSION", ""),
		AppVersion:      getEnv("APP_VERSION", "1.0.0"),
		BuildNumber:     getEnv("BUILD_NUMBER", "1"),
		Platform:        getEnv("PLATFORM", runtime.GOOS),
		ReadyRetries:    getEnvInt("BACKEND_READY_RETRIES", 5),
		ReadyDelay:      getEnvDuration("BACKEND_READY_DELAY", 100*time.Millisecond),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// IdentityCachePath is the file holding the cached anonymous identity.
func (c *Config) IdentityCachePath() string {
	return filepath.Join(c.DataDir, "identity.json")
}

// databaseFromURI extracts the database name from a connection string
// (mongodb://host/dbname?opts), falling back to def.
func databaseFromURI(uri, def string) string {
	parts := strings.Split(uri, "/")
	if len(parts) > 3 {
		dbPart := strings.Split(parts[len(parts)-1], "?")[0]
		if dbPart != "" {
			return dbPart
		}
	}
	return def
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wayfarer")
	}
	return ".wayfarer"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// Bare numbers are milliseconds
	if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
