package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestElevenLabsGenerateSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/text-to-speech/voice-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != elevenLabsOutputFormat {
			t.Errorf("expected output_format=%s, got %s", elevenLabsOutputFormat, got)
		}
		if got := r.Header.Get("xi-api-key"); got != "el-key" {
			t.Errorf("expected api key header, got %q", got)
		}

		var body elevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Text != "Hello there." {
			t.Errorf("unexpected text %q", body.Text)
		}
		if body.LanguageCode != "en" {
			t.Errorf("expected language_code=en, got %q", body.LanguageCode)
		}
		if body.VoiceSettings == nil || body.VoiceSettings.Speed != 1.0 {
			t.Errorf("expected normal speaking rate, got %+v", body.VoiceSettings)
		}

		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	svc := NewElevenLabsServiceWithURL(srv.URL, "el-key", "voice-123", "en")
	resp, err := svc.GenerateSpeech(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("GenerateSpeech failed: %v", err)
	}
	if string(resp.AudioData) != "mp3-bytes" {
		t.Errorf("unexpected audio %q", resp.AudioData)
	}
}

func TestElevenLabsEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewElevenLabsServiceWithURL(srv.URL, "el-key", "", "en")
	if _, err := svc.GenerateSpeech(context.Background(), "Hello."); err == nil {
		t.Fatal("expected error for empty audio body")
	}
}

func TestElevenLabsDefaultVoice(t *testing.T) {
	svc := NewElevenLabsService("key", "", "")
	if svc.voiceID != elevenLabsDefaultVoice {
		t.Errorf("expected default voice, got %s", svc.voiceID)
	}
	if svc.language != "en" {
		t.Errorf("expected default language en, got %s", svc.language)
	}
}
