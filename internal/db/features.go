package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// InsertSessionFeatures appends a batch of feature rows in one statement.
// Feature rows are never updated or deleted.
func (db *DB) InsertSessionFeatures(ctx context.Context, features []models.SessionFeature) error {
	if len(features) == 0 {
		return nil
	}

	placeholders := make([]string, len(features))
	args := make([]interface{}, 0, len(features)*4)
	for i, f := range features {
		placeholders[i] = fmt.Sprintf("($%d, $%d, $%d, $%d)", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, f.SessionID, f.Name, f.Value, f.ComputedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO session_features (session_id, feature_name, feature_value, computed_at)
		VALUES %s
	`, strings.Join(placeholders, ", "))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert session features: %w", err)
	}

	return nil
}

// SessionFeatures returns all feature rows for a session ordered oldest
// first, so map-building callers end up with the latest value per name.
func (db *DB) SessionFeatures(ctx context.Context, sessionID string) ([]models.SessionFeature, error) {
	query := `
		SELECT session_id, feature_name, feature_value, computed_at
		FROM session_features
		WHERE session_id = $1
		ORDER BY computed_at ASC, id ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session features: %w", err)
	}
	defer rows.Close()

	var features []models.SessionFeature
	for rows.Next() {
		var f models.SessionFeature
		if err := rows.Scan(&f.SessionID, &f.Name, &f.Value, &f.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session feature: %w", err)
		}
		features = append(features, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session features: %w", err)
	}

	return features, nil
}
