package db

import (
	"context"
	"os"
	"testing"

	"github.com/bobarin/tutor/internal/models"
	"github.com/google/uuid"
)

// TestInteractionRoundTrip runs only when TEST_DATABASE_URL points at a scratch Postgres.
func TestInteractionRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	database, err := New(url)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Idempotent
	if err := database.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	reqID := "req-123"
	in := &models.Interaction{
		ID:             uuid.New(),
		Kind:           models.InteractionKindChat,
		RequestID:      &reqID,
		Status:         models.InteractionStatusSucceeded,
		InputChars:     12,
		OutputChars:    240,
		VideoGenerated: true,
		DurationMs:     1800,
	}
	if err := database.CreateInteraction(ctx, in); err != nil {
		t.Fatalf("CreateInteraction failed: %v", err)
	}
	if in.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}

	got, err := database.ListInteractions(ctx, 500)
	if err != nil {
		t.Fatalf("ListInteractions failed: %v", err)
	}

	for _, row := range got {
		if row.ID != in.ID {
			continue
		}
		if row.RequestID == nil || *row.RequestID != reqID || !row.VideoGenerated || row.ErrorMessage != nil {
			t.Errorf("row did not round-trip: %+v", row)
		}
		return
	}
	t.Errorf("inserted interaction %s not found", in.ID)
}
