package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	APIURL                 string
	UploadURL              string
	UploadPreset           string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	ReportsCacheTTLSeconds int
	AMQPURL                string
	AuthSecret             string
	AccessTokenTTLMinutes  int
	OperatorUsername       string
	OperatorPassword       string
	AuthorizedEmails       []string
	LogLevel               string
	GatewayTimeoutSeconds  int
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		APIURL:                 strings.TrimSpace(os.Getenv("POS_API_URL")),
		UploadURL:              strings.TrimSpace(os.Getenv("UPLOAD_URL")),
		UploadPreset:           strings.TrimSpace(os.Getenv("UPLOAD_PRESET")),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		ReportsCacheTTLSeconds: positiveInt("REPORTS_CACHE_TTL_SECONDS", 60),
		AMQPURL:                strings.TrimSpace(os.Getenv("AMQP_URL")),
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  positiveInt("ACCESS_TOKEN_TTL_MINUTES", 720),
		OperatorUsername:       getEnv("OPERATOR_USERNAME", "caja"),
		OperatorPassword:       strings.TrimSpace(os.Getenv("OPERATOR_PASSWORD")),
		AuthorizedEmails:       splitList(os.Getenv("AUTHORIZED_EMAILS")),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		GatewayTimeoutSeconds:  positiveInt("GATEWAY_TIMEOUT_SECONDS", 15),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
