package db

import (
	"context"
	"fmt"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// ReplaceModelSnapshots upserts the persisted metadata for each trained
// model, keyed by model type.
func (db *DB) ReplaceModelSnapshots(ctx context.Context, snapshots []models.ModelSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO model_snapshots (model_type, accuracy, last_trained, training_data_size)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model_type) DO UPDATE SET
			accuracy = EXCLUDED.accuracy,
			last_trained = EXCLUDED.last_trained,
			training_data_size = EXCLUDED.training_data_size
	`
	for _, snap := range snapshots {
		if _, err := tx.ExecContext(ctx, query, snap.ModelType, snap.Accuracy, snap.LastTrained, snap.TrainingDataSize); err != nil {
			return fmt.Errorf("failed to upsert model snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model snapshots: %w", err)
	}

	return nil
}

// ModelSnapshots returns the persisted metadata for all trained models.
func (db *DB) ModelSnapshots(ctx context.Context) ([]models.ModelSnapshot, error) {
	query := `
		SELECT model_type, accuracy, last_trained, training_data_size
		FROM model_snapshots
		ORDER BY model_type
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query model snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.ModelSnapshot
	for rows.Next() {
		var snap models.ModelSnapshot
		if err := rows.Scan(&snap.ModelType, &snap.Accuracy, &snap.LastTrained, &snap.TrainingDataSize); err != nil {
			return nil, fmt.Errorf("failed to scan model snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model snapshots: %w", err)
	}

	return snapshots, nil
}
