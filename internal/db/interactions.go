package db

import (
	"context"
	"fmt"

	"github.com/bobarin/tutor/internal/models"
)

func (db *DB) CreateInteraction(ctx context.Context, in *models.Interaction) error {
	query := `
		INSERT INTO interactions (
			id, kind, request_id, status, input_chars, output_chars,
			video_generated, error_message, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		in.ID, in.Kind, in.RequestID, in.Status, in.InputChars, in.OutputChars,
		in.VideoGenerated, in.ErrorMessage, in.DurationMs,
	).Scan(&in.CreatedAt)
}

// ListInteractions returns the most recent interactions, newest first.
func (db *DB) ListInteractions(ctx context.Context, limit int) ([]models.Interaction, error) {
	query := `
		SELECT
			id, kind, request_id, status, input_chars, output_chars,
			video_generated, error_message, duration_ms, created_at
		FROM interactions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		var in models.Interaction
		err := rows.Scan(
			&in.ID, &in.Kind, &in.RequestID, &in.Status, &in.InputChars, &in.OutputChars,
			&in.VideoGenerated, &in.ErrorMessage, &in.DurationMs, &in.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, in)
	}

	return interactions, rows.Err()
}
