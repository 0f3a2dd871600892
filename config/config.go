package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Session    SessionConfig
	Upload     UploadConfig
	Storage    StorageConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type UploadConfig struct {
	// MaxBytes bounds the whole multipart request body.
	MaxBytes int64
}

// StorageConfig selects the photo storage backend.
// Backend is one of "local", "minio", "gcs".
type StorageConfig struct {
	Backend string
	Local   LocalConfig
	Minio   MinioConfig
	GCS     GCSConfig
}

type LocalConfig struct {
	Dir string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "userfolio"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "userfolio_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	sessionConfig := SessionConfig{
		Secret: getEnv("SESSION_SECRET", ""),
		TTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
	}

	uploadConfig := UploadConfig{
		MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 2<<20)),
	}

	storageConfig := StorageConfig{
		Backend: getEnv("STORAGE_BACKEND", "local"),
		Local: LocalConfig{
			Dir: getEnv("UPLOAD_DIR", "static/uploads"),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "userfolio-uploads"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Session:    sessionConfig,
		Upload:     uploadConfig,
		Storage:    storageConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "true" || valueStr == "1"
	}
	return defaultValue
}
