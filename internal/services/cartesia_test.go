package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCartesiaGenerateSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts/bytes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ca-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("Cartesia-Version") == "" {
			t.Error("missing Cartesia-Version header")
		}

		var body cartesiaRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Transcript != "Water boils at 100 degrees." {
			t.Errorf("unexpected transcript %q", body.Transcript)
		}
		if body.Voice.ID != cartesiaDefaultVoice {
			t.Errorf("expected default voice, got %q", body.Voice.ID)
		}
		if body.Language != "en" || body.OutputFormat.Container != "mp3" {
			t.Errorf("unexpected language/format: %+v", body)
		}

		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	svc := NewCartesiaServiceWithURL(srv.URL+"/", "ca-key", "", "")
	resp, err := svc.GenerateSpeech(context.Background(), "Water boils at 100 degrees.")
	if err != nil {
		t.Fatalf("GenerateSpeech failed: %v", err)
	}
	if string(resp.AudioData) != "mp3" || resp.Format != "mp3" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestCartesiaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewCartesiaServiceWithURL(srv.URL, "ca-key", "v", "en")
	_, err := svc.GenerateSpeech(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}
