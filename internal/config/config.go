package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Logger LoggerConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	QR       QRConfig
	Clearing ClearingConfig
	Tomra    TomraConfig
	Export   ExportConfig
}

type LoggerConfig struct {
	Level string
}

// QRConfig controls the bag code format and the registered series.
type QRConfig struct {
	URLPrefix  string
	IDLength   int
	HashLength int
	OutputDir  string
	Series     map[string]QRSeries
}

// QRSeries names one family of allocatable bag codes sharing a prefix digit.
type QRSeries struct {
	Name   string
	Prefix int
}

// CodeLength is the length of a full bag code (prefix + id + control code).
func (q QRConfig) CodeLength() int {
	return 1 + q.IDLength + q.HashLength
}

// ShortCodeLength is the length of a bag code without the control code.
func (q QRConfig) ShortCodeLength() int {
	return 1 + q.IDLength
}

// ClearingConfig locates the clearing-report files delivered by the RVM partner.
type ClearingConfig struct {
	Path    string
	SFTPURL string
	Timeout time.Duration
}

type TomraConfig struct {
	Env          string
	APIKey       string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type ExportConfig struct {
	// DefaultRefundValue is the deposit value in øre applied to manual lines.
	DefaultRefundValue int
	OutputDir          string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "pantportal"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		Logger: LoggerConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pant"),
		DBUser:            getenv("DATABASE_USER", "pant"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		QR: QRConfig{
			URLPrefix:  getenv("QR_URL_PREFIX", "http://pant.gl?QR="),
			IDLength:   getenvInt("QR_ID_LENGTH", 9),
			HashLength: getenvInt("QR_HASH_LENGTH", 8),
			OutputDir:  getenv("QR_OUTPUT_DIR", "/srv/media/qr_codes"),
			Series:     defaultSeries(),
		},
		Clearing: ClearingConfig{
			Path:    getenv("CLEARING_PATH", "/srv/media/deposit_payouts"),
			SFTPURL: getenv("CLEARING_SFTP_URL", ""),
			Timeout: getenvDuration("CLEARING_TIMEOUT", 2*time.Minute),
		},
		Tomra: TomraConfig{
			Env:          getenv("TOMRA_API_ENV", "eu-sandbox"),
			APIKey:       getenv("TOMRA_API_KEY", ""),
			ClientID:     getenv("TOMRA_API_CLIENT_ID", ""),
			ClientSecret: getenv("TOMRA_API_CLIENT_SECRET", ""),
			Timeout:      getenvDuration("TOMRA_API_TIMEOUT", time.Minute),
		},
		Export: ExportConfig{
			DefaultRefundValue: getenvInt("DEFAULT_REFUND_VALUE", 200),
			OutputDir:          getenv("EXPORT_OUTPUT_DIR", "/srv/media/exports"),
		},
	}
}

func defaultSeries() map[string]QRSeries {
	return map[string]QRSeries{
		"small": {Name: "Små sække", Prefix: 0},
		"large": {Name: "Store sække", Prefix: 1},
		"test":  {Name: "QR-koder til test", Prefix: 9},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
