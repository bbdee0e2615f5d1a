package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ChatProviderOpenAI = "openai"
	ChatProviderGemini = "gemini"

	TTSProviderGoogle     = "google"
	TTSProviderElevenLabs = "elevenlabs"
	TTSProviderCartesia   = "cartesia"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)
	MaxUploadMB        int
	TrustProxyHeaders  bool // Take client IPs from X-Forwarded-For / X-Real-IP

	// Optional infrastructure (empty = disabled)
	DatabaseURL        string
	RedisURL           string
	RateLimitPerMinute int

	// OpenAI (chat answers and Whisper transcription)
	OpenAIKey   string
	OpenAIModel string

	// Gemini (alternative chat provider)
	ChatProvider string
	GeminiKey    string
	GeminiModel  string

	// Text-to-speech
	TTSProvider       string
	TTSLanguage       string
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	CartesiaKey       string
	CartesiaVoiceID   string

	// Audio transcoding
	FFmpegPath string
	WorkDir    string // Scratch directory for per-request temp artifacts

	// Wav2Lip lip-sync (optional stage)
	LipSyncEnabled       bool
	LipSyncCommand       string // Interpreter or executable (default: python)
	LipSyncScript        string // inference.py path, passed as first argument when set
	LipSyncCheckpoint    string
	LipSyncFaceImage     string
	LipSyncMaxConcurrent int

	// Per-stage timeouts
	ChatTimeout       time.Duration
	TTSTimeout        time.Duration
	TranscodeTimeout  time.Duration
	LipSyncTimeout    time.Duration
	TranscribeTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "5000"),
		BackendAPIKey:        getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		MaxUploadMB:          getEnvInt("MAX_UPLOAD_MB", 25),
		TrustProxyHeaders:    getEnvBool("TRUST_PROXY_HEADERS", false),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		OpenAIKey:            getEnv("OPENAI_API_KEY", getEnv("API_KEY", "")),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		ChatProvider:         getEnv("CHAT_PROVIDER", ChatProviderOpenAI),
		GeminiKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		TTSProvider:          getEnv("TTS_PROVIDER", TTSProviderGoogle),
		TTSLanguage:          getEnv("TTS_LANGUAGE", "en"),
		ElevenLabsKey:        getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:    getEnv("ELEVENLABS_VOICE_ID", ""),
		CartesiaKey:          getEnv("CARTESIA_API_KEY", ""),
		CartesiaVoiceID:      getEnv("CARTESIA_VOICE_ID", ""),
		FFmpegPath:           getEnv("FFMPEG_PATH", "ffmpeg"),
		WorkDir:              getEnv("WORK_DIR", filepath.Join(os.TempDir(), "tutor")),
		LipSyncEnabled:       getEnvBool("LIPSYNC_ENABLED", true),
		LipSyncCommand:       getEnv("LIPSYNC_COMMAND", "python"),
		LipSyncScript:        getEnv("LIPSYNC_SCRIPT", filepath.Join("Wav2Lip", "inference.py")),
		LipSyncCheckpoint:    getEnv("LIPSYNC_CHECKPOINT", filepath.Join("Wav2Lip", "Wav2Lip-SD-NOGAN.pt")),
		LipSyncFaceImage:     getEnv("LIPSYNC_FACE_IMAGE", filepath.Join("assets", "face.jpg")),
		LipSyncMaxConcurrent: getEnvInt("LIPSYNC_MAX_CONCURRENT", 1),
		ChatTimeout:          getEnvDuration("CHAT_TIMEOUT", 60*time.Second),
		TTSTimeout:           getEnvDuration("TTS_TIMEOUT", 60*time.Second),
		TranscodeTimeout:     getEnvDuration("TRANSCODE_TIMEOUT", 30*time.Second),
		LipSyncTimeout:       getEnvDuration("LIPSYNC_TIMEOUT", 5*time.Minute),
		TranscribeTimeout:    getEnvDuration("TRANSCRIBE_TIMEOUT", 60*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that would make every provider call fail.
func (c *Config) Validate() error {
	// Whisper transcription always goes through OpenAI
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY (or API_KEY) is required")
	}

	switch c.ChatProvider {
	case ChatProviderOpenAI:
	case ChatProviderGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when CHAT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown CHAT_PROVIDER %q (allowed: openai, gemini)", c.ChatProvider)
	}

	switch c.TTSProvider {
	case TTSProviderGoogle:
	case TTSProviderElevenLabs:
		if c.ElevenLabsKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY is required when TTS_PROVIDER=elevenlabs")
		}
	case TTSProviderCartesia:
		if c.CartesiaKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required when TTS_PROVIDER=cartesia")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q (allowed: google, elevenlabs, cartesia)", c.TTSProvider)
	}

	if c.LipSyncMaxConcurrent < 1 {
		return fmt.Errorf("LIPSYNC_MAX_CONCURRENT must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
