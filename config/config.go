package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vnkhanh/crowdsourcing/logger"
)

// Config is built once at startup and handed to every handler by pointer.
type Config struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string

	DBDriver   string // postgres | sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string
	DebugSQL   bool

	JWTSecret      string
	GoogleClientID string

	// LoginURL is where anonymous visitors are sent when a survey needs login.
	LoginURL        string
	SurveyAdminSite string
	SurveyEmailFrom string
	PreReport       string

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPass          string
	SMTPSkipTLSVerify bool

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	CORSOrigins []string
	CSRFKey     string
	ExportDir   string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		GinMode:     os.Getenv("GIN_MODE"),
		Environment: strings.ToLower(os.Getenv("ENVIRONMENT")),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBDriver:   strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     getenv("DB_PATH", "crowdsourcing.sqlite"),
		DebugSQL:   strings.ToLower(os.Getenv("DEBUG_SQL")) == "true",

		JWTSecret:      os.Getenv("JWT_SECRET"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		LoginURL:        os.Getenv("LOGIN_URL"),
		SurveyAdminSite: os.Getenv("SURVEY_ADMIN_SITE"),
		SurveyEmailFrom: os.Getenv("SURVEY_EMAIL_FROM"),
		PreReport:       os.Getenv("PRE_REPORT"),

		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		SMTPSkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",

		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		SupabaseBucket: getenv("SUPABASE_BUCKET", "uploadfile_survey"),

		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		CSRFKey:     os.Getenv("CSRF_KEY"),
		ExportDir:   getenv("EXPORT_DIR", "./exports"),
	}

	cfg.SMTPPort, _ = strconv.Atoi(os.Getenv("SMTP_PORT"))
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if cfg.CSRFKey != "" && len(cfg.CSRFKey) != 32 {
		return nil, errors.New("CSRF_KEY must be 32 bytes")
	}
	return cfg, nil
}

func (cfg *Config) IsProduction() bool {
	return cfg.Environment == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
