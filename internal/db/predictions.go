package db

import (
	"context"
	"fmt"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// InsertPrediction appends one prediction row and fills in the assigned id.
func (db *DB) InsertPrediction(ctx context.Context, p *models.SessionPrediction) error {
	query := `
		INSERT INTO session_predictions (session_id, prediction_type, predicted_value, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query,
		p.SessionID,
		p.PredictionType,
		p.PredictedValue,
		p.Confidence,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// SessionPredictions returns the most recent predictions for a session,
// newest first.
func (db *DB) SessionPredictions(ctx context.Context, sessionID string, limit int) ([]models.SessionPrediction, error) {
	query := `
		SELECT id, session_id, prediction_type, predicted_value, confidence, created_at
		FROM session_predictions
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := db.conn.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []models.SessionPrediction
	for rows.Next() {
		var p models.SessionPrediction
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PredictionType, &p.PredictedValue, &p.Confidence, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return predictions, nil
}
