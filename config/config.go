// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port          string
	DatabaseURL   string
	DBAutoMigrate bool
	LogLevel      string

	GoogleCloudProject string
	OtelEnabled        bool
	OtelEndpoint       string
	OtelServiceName    string
	OtelSamplingRate   float64

	// JWTSecretKey はトークン署名用の共有鍵。
	// JWTSecretKMSCiphertext が設定されている場合はそちらを KMS で復号して使う。
	JWTSecretKey           string
	JWTSecretKMSCiphertext string
	KMSKeyName             string
	JWTIssuer              string
	JWTAudience            string

	// TokenClaimsSecret が空の場合はホスト固有のエントロピーからクレーム暗号鍵を導出する。
	TokenClaimsSecret string
	// PayloadSecret はブラウザクライアントと共有するペイロード暗号化用パスフレーズ。
	PayloadSecret string

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),

		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "library-management-service"),
		OtelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),

		JWTSecretKey:           os.Getenv("JWT_SECRET_KEY"),
		JWTSecretKMSCiphertext: os.Getenv("JWT_SECRET_KMS_CIPHERTEXT"),
		KMSKeyName:             os.Getenv("KMS_KEY_NAME"),
		JWTIssuer:              getEnv("JWT_ISSUER", "LibraryManagement"),
		JWTAudience:            getEnv("JWT_AUDIENCE", "LibraryManagementUsers"),

		TokenClaimsSecret: os.Getenv("TOKEN_CLAIMS_SECRET"),
		PayloadSecret:     os.Getenv("PAYLOAD_SECRET"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxBodyBytes:       getEnvInt64("MAX_BODY_BYTES", 1<<20),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

// getEnvList はカンマ区切りの値を読み込む。空要素は捨てる。
func getEnvList(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
