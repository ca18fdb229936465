package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	ChatResponseDelay time.Duration
	TopicCacheTTL     time.Duration
	PasswordResetTTL  time.Duration

	STTProvider string // google | http | none
	STTEndpoint string
	STTAPIKey   string
	STTTimeout  time.Duration
	STTLanguage string

	GCSBucket       string
	CredentialsFile string

	VoiceTranscriptTTL time.Duration
	VoiceWorkers       int
	MetricsEnabled     bool
}

func Load() Config {
	return Config{
		Port:     envStr("PORT", "8080"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		JWTSecret: envStr("JWT_SECRET", ""),
		JWTIssuer: envStr("JWT_ISSUER", "yoohealth"),
		JWTTTL:    time.Duration(envInt("JWT_TTL_MINUTES", 60*24)) * time.Minute,

		ChatResponseDelay: time.Duration(envInt("CHAT_RESPONSE_DELAY_MS", 1000)) * time.Millisecond,
		TopicCacheTTL:     time.Duration(envInt("TOPIC_CACHE_TTL_SECONDS", 300)) * time.Second,
		PasswordResetTTL:  time.Duration(envInt("PASSWORD_RESET_TTL_MINUTES", 30)) * time.Minute,

		STTProvider: strings.ToLower(envStr("STT_PROVIDER", "none")),
		STTEndpoint: envStr("STT_ENDPOINT", ""),
		STTAPIKey:   envStr("STT_API_KEY", ""),
		STTTimeout:  time.Duration(envInt("STT_TIMEOUT_MS", 30000)) * time.Millisecond,
		STTLanguage: envStr("STT_LANGUAGE", "en-US"),

		GCSBucket:       envStr("GCS_BUCKET", ""),
		CredentialsFile: envStr("GOOGLE_APPLICATION_CREDENTIALS_FILE", ""),

		VoiceTranscriptTTL: time.Duration(envInt("VOICE_TRANSCRIPT_TTL_HOURS", 24*30)) * time.Hour,
		VoiceWorkers:       envInt("VOICE_WORKERS", 2),
		MetricsEnabled:     envBool("METRICS_ENABLED", true),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
