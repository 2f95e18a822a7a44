package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Qdrant     QdrantConfig
	Gemini     GeminiConfig
	OCR        OCRConfig
	Reference  ReferenceConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Evaluation EvaluationConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey  string
	Timeout time.Duration
}

type OCRConfig struct {
	URL       string
	HealthURL string
	Timeout   time.Duration
}

// ReferenceConfig selects where the reference corpus is loaded from.
// Source is either "file" (JSON array at Path) or "qdrant" (scroll the
// corpus collection). Either way the index itself lives in memory.
type ReferenceConfig struct {
	Source string
	Path   string
}

type StorageConfig struct {
	UploadPath   string
	OCRDebugPath string
	MaxFileSize  int64
}

type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

// EvaluationConfig carries the scoring knobs. MatchThreshold and
// MaxAdjustment are configurable with the defaults the rubric was tuned
// with, not baked-in constants.
type EvaluationConfig struct {
	MatchThreshold   float64
	MaxAdjustment    float64
	LLMEnabled       bool
	NormalizeEnabled bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "answer_evaluator"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "reference_answers"),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", "60s"),
		},
		OCR: OCRConfig{
			URL:       getEnv("OCR_URL", "http://127.0.0.1:8008/ocr"),
			HealthURL: getEnv("OCR_HEALTH_URL", "http://127.0.0.1:8008/health"),
			Timeout:   getEnvAsDuration("OCR_TIMEOUT", "120s"),
		},
		Reference: ReferenceConfig{
			Source: getEnv("REFERENCE_SOURCE", "file"),
			Path:   getEnv("REFERENCE_PATH", "./data/reference.json"),
		},
		Storage: StorageConfig{
			UploadPath:   getEnv("UPLOAD_PATH", "./uploads"),
			OCRDebugPath: getEnv("OCR_DEBUG_PATH", "./temp/ocr_texts"),
			MaxFileSize:  getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 3),
			QueueSize:   getEnvAsInt("WORKER_QUEUE_SIZE", 100),
		},
		Evaluation: EvaluationConfig{
			MatchThreshold:   getEnvAsFloat("MATCH_THRESHOLD", 0.7),
			MaxAdjustment:    getEnvAsFloat("MAX_ADJUSTMENT", 2.0),
			LLMEnabled:       getEnvAsBool("LLM_ENABLED", false),
			NormalizeEnabled: getEnvAsBool("LLM_NORMALIZE", false),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
