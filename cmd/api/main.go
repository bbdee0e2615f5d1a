package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bobarin/tutor/internal/api"
	"github.com/bobarin/tutor/internal/config"
	"github.com/bobarin/tutor/internal/db"
	"github.com/bobarin/tutor/internal/pipeline"
	"github.com/bobarin/tutor/internal/ratelimit"
	"github.com/bobarin/tutor/internal/services"
)

func main() {
	log.Println("Starting Tutor API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// OpenAI always backs transcription, and chat unless Gemini is selected
	openaiSvc := services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)

	var chatSvc services.ChatProvider = openaiSvc
	if cfg.ChatProvider == config.ChatProviderGemini {
		geminiSvc, err := services.NewGeminiService(context.Background(), cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini: %v", err)
		}
		chatSvc = geminiSvc
		log.Printf("Chat provider: Gemini (model: %s)", cfg.GeminiModel)
	} else {
		log.Printf("Chat provider: OpenAI (model: %s)", cfg.OpenAIModel)
	}

	// Initialize TTS provider
	var ttsSvc services.TTSService
	switch cfg.TTSProvider {
	case config.TTSProviderElevenLabs:
		ttsSvc = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.TTSLanguage)
		log.Printf("TTS provider: ElevenLabs (voice: %s, lang: %s)", cfg.ElevenLabsVoiceID, cfg.TTSLanguage)
	case config.TTSProviderCartesia:
		ttsSvc = services.NewCartesiaService(cfg.CartesiaKey, cfg.CartesiaVoiceID, cfg.TTSLanguage)
		log.Printf("TTS provider: Cartesia (voice: %s, lang: %s)", cfg.CartesiaVoiceID, cfg.TTSLanguage)
	default:
		ttsSvc = services.NewGoogleTTSService(cfg.TTSLanguage)
		log.Printf("TTS provider: Google Translate (lang: %s)", cfg.TTSLanguage)
	}

	ffmpegSvc := services.NewFFmpegService(cfg.FFmpegPath)
	if !ffmpegSvc.Available() {
		log.Printf("WARNING: %s not found on PATH, chat requests will fail at transcoding", cfg.FFmpegPath)
	}

	// Lip-sync is optional; leave the interface nil when disabled
	var renderer services.VideoRenderer
	if cfg.LipSyncEnabled {
		wav2lip, err := services.NewWav2LipRenderer(services.Wav2LipConfig{
			Command:        cfg.LipSyncCommand,
			Script:         cfg.LipSyncScript,
			CheckpointPath: cfg.LipSyncCheckpoint,
			OutputDir:      filepath.Join(cfg.WorkDir, "lipsync"),
			MaxConcurrent:  cfg.LipSyncMaxConcurrent,
		})
		if err != nil {
			log.Printf("WARNING: Wav2Lip unavailable, responses will be audio-only: %v", err)
		} else {
			renderer = wav2lip
			log.Printf("Wav2Lip lip-sync enabled (face: %s, max concurrent: %d)", cfg.LipSyncFaceImage, cfg.LipSyncMaxConcurrent)
		}
	} else {
		log.Println("Lip-sync disabled, responses will be audio-only")
	}

	orch, err := pipeline.New(chatSvc, ttsSvc, ffmpegSvc, renderer, openaiSvc, pipeline.Config{
		WorkDir:   cfg.WorkDir,
		FaceImage: cfg.LipSyncFaceImage,
		Timeouts: pipeline.Timeouts{
			Chat:       cfg.ChatTimeout,
			Speech:     cfg.TTSTimeout,
			Transcode:  cfg.TranscodeTimeout,
			LipSync:    cfg.LipSyncTimeout,
			Transcribe: cfg.TranscribeTimeout,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}

	// Connect to database (optional interaction log)
	var interactions api.InteractionStore
	if cfg.DatabaseURL != "" {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		interactions = database
		log.Println("Connected to database, interaction log enabled")
	}

	// Connect to Redis (optional rate limiting)
	var limiter api.RequestLimiter
	if cfg.RedisURL != "" {
		rl, err := ratelimit.New(cfg.RedisURL, cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rl.Close()
		limiter = rl
		log.Printf("Connected to Redis, rate limit %d requests/minute per client", cfg.RateLimitPerMinute)
	}

	// Create API handler
	handler := api.NewHandler(orch, interactions, int64(cfg.MaxUploadMB)<<20)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		Limiter:            limiter,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	// Start HTTP server. No write timeout: lip-sync renders can run for minutes.
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Let in-flight requests finish so their temp artifacts get cleaned up
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
