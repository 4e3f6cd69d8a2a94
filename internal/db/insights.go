package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// InsertInsight stores a generated insight and fills in the assigned id.
func (db *DB) InsertInsight(ctx context.Context, insight *models.SessionInsight) error {
	data, err := json.Marshal(insight.InsightData)
	if err != nil {
		return fmt.Errorf("failed to marshal insight data: %w", err)
	}

	query := `
		INSERT INTO session_insights (session_id, insight_type, insight_data, priority, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = db.conn.QueryRowContext(ctx, query,
		insight.SessionID,
		insight.InsightType,
		data,
		string(insight.Priority),
		insight.CreatedAt,
	).Scan(&insight.ID)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}

	return nil
}

// RecentInsights returns up to limit insights, newest first.
func (db *DB) RecentInsights(ctx context.Context, limit int) ([]models.SessionInsight, error) {
	query := `
		SELECT id, session_id, insight_type, insight_data, priority, created_at
		FROM session_insights
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []models.SessionInsight
	for rows.Next() {
		var ins models.SessionInsight
		var data []byte
		var priority string
		if err := rows.Scan(&ins.ID, &ins.SessionID, &ins.InsightType, &data, &priority, &ins.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ins.InsightData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal insight data: %w", err)
			}
		}
		ins.Priority = models.Priority(priority)
		insights = append(insights, ins)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}

	return insights, nil
}
