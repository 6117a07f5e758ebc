// Package config loads and validates application configuration from
// environment variables. Loading collects every problem it finds and reports
// them together, so a misconfigured deployment fails once with the full
// list instead of one variable at a time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PoolConfig holds the settings for the PostgreSQL connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds authentication settings. JWTSecret is loaded once at
// startup and never changes for the life of the process; rotating it
// invalidates every outstanding token.
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string
}

// UploadsConfig holds settings for the uploaded-image file tree.
type UploadsConfig struct {
	Dir string
}

// AnalyzerConfig holds settings for the external vision model. An empty
// APIKey is allowed at startup; analysis requests will then fail with a
// dependency error instead of preventing the server from booting.
type AnalyzerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// AppConfig is the top-level configuration for the application.
type AppConfig struct {
	DB       *PoolConfig
	Auth     *AuthConfig
	Server   *ServerConfig
	Uploads  *UploadsConfig
	Analyzer *AnalyzerConfig
}

func getRequiredEnv(key string, errs *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errs = append(*errs, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, errs *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// LoadConfig reads every setting from the environment and returns the
// assembled AppConfig, or a single error aggregating all problems found.
func LoadConfig() (*AppConfig, error) {
	var errs []string

	dbUser := getRequiredEnv("DB_USER", &errs)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errs)
	dbName := getRequiredEnv("DB_NAME", &errs)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errs)
	poolSize := getOptionalEnvInt("DB_POOL_SIZE", 10, &errs)
	if poolSize < 1 {
		errs = append(errs, fmt.Sprintf("DB_POOL_SIZE must be positive, got %d", poolSize))
		poolSize = 1
	}

	jwtSecret := getRequiredEnv("JWT_SECRET", &errs)
	// Token lifetime defaults to 7 days, matching the session model where
	// expiry is the only way a token dies.
	tokenDuration := getOptionalEnvDuration("TOKEN_DURATION", 168*time.Hour, &errs)
	if tokenDuration <= 0 {
		errs = append(errs, fmt.Sprintf("TOKEN_DURATION must be positive, got %s", tokenDuration))
	}

	serverPort := getOptionalEnv("PORT", "8080")
	uploadsDir := getOptionalEnv("UPLOADS_DIR", "./uploads")

	analyzer := &AnalyzerConfig{
		APIKey:  getOptionalEnv("GEMINI_API_KEY", ""),
		Model:   getOptionalEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BaseURL: getOptionalEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		Timeout: getOptionalEnvDuration("ANALYZER_TIMEOUT", 30*time.Second, &errs),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return &AppConfig{
		DB: &PoolConfig{
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPassword,
			DBName:   dbName,
			MaxSize:  poolSize,
		},
		Auth: &AuthConfig{
			JWTSecret:     jwtSecret,
			TokenDuration: tokenDuration,
		},
		Server:   &ServerConfig{Port: serverPort},
		Uploads:  &UploadsConfig{Dir: uploadsDir},
		Analyzer: analyzer,
	}, nil
}
