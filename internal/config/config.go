package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Upload   UploadConfig
	Ontology OntologyConfig
	Ai       AIConfig
	Client   ClientConfig
}

type AppConfig struct {
	Port                string
	BaseURL             string
	Environment         string
	LogFilePath         string
	CorsAllowedOrigins  string
	SessionCookieSecret string
	SessionCookieName   string
	NatsURL             string
	RedisURL            string
}

type UploadConfig struct {
	Dir       string
	MaxSizeMB int
}

type OntologyConfig struct {
	GeneratedDir string
	DefaultPath  string
	DefaultDir   string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "stub"
	LLMModel      string
	OllamaBaseURL string
}

// ClientConfig configures cmd/chat, the terminal client.
type ClientConfig struct {
	ServerURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                getEnv("APP_PORT", "5000"),
			BaseURL:             getEnv("APP_BASE_URL", "http://localhost:5000"),
			Environment:         getEnv("GO_ENV", "development"),
			LogFilePath:         getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			SessionCookieSecret: getEnv("SESSION_COOKIE_SECRET", "dev_secret_key_for_local_project"),
			SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "ontology_chat_session"),
			NatsURL:             getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Upload: UploadConfig{
			Dir:       getEnv("UPLOAD_DIR", "pdf_upload"),
			MaxSizeMB: getEnvAsInt("UPLOAD_MAX_MB", 20),
		},
		Ontology: OntologyConfig{
			GeneratedDir: getEnv("ONTOLOGY_DIR", "generated_ontologies"),
			DefaultPath:  getEnv("DEFAULT_ONTOLOGY_PATH", "static/MINDMAP.owl"),
			DefaultDir:   getEnv("DEFAULT_ONTOLOGY_DIR", "static"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Client: ClientConfig{
			ServerURL: getEnv("CHAT_SERVER_URL", "http://localhost:5000"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
