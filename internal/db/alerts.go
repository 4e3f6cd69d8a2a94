package db

import (
	"context"
	"fmt"
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// InsertAlert stores a new anomaly alert.
func (db *DB) InsertAlert(ctx context.Context, alert *models.AnomalyAlert) error {
	query := `
		INSERT INTO anomaly_alerts (id, session_id, anomaly_type, severity, description, recommended_action, detected_at, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`
	_, err := db.conn.ExecContext(ctx, query,
		alert.ID,
		alert.SessionID,
		alert.AnomalyType,
		string(alert.Severity),
		alert.Description,
		alert.RecommendedAction,
		alert.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// ActiveAlerts returns all unresolved alerts, newest first.
func (db *DB) ActiveAlerts(ctx context.Context) ([]models.AnomalyAlert, error) {
	query := `
		SELECT id, session_id, anomaly_type, severity, description, recommended_action, detected_at, is_resolved, resolved_at
		FROM anomaly_alerts
		WHERE NOT is_resolved
		ORDER BY detected_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.AnomalyAlert
	for rows.Next() {
		var a models.AnomalyAlert
		var severity string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.AnomalyType, &severity, &a.Description, &a.RecommendedAction, &a.DetectedAt, &a.IsResolved, &a.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = models.Severity(severity)
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// ResolveAlert marks an alert resolved. Resolving an already-resolved
// alert is a no-op. Returns ErrAlertNotFound if the id does not exist.
func (db *DB) ResolveAlert(ctx context.Context, alertID string) error {
	now := time.Now().UnixMilli()
	query := `
		UPDATE anomaly_alerts
		SET is_resolved = TRUE,
		    resolved_at = COALESCE(resolved_at, $2)
		WHERE id = $1
	`
	result, err := db.conn.ExecContext(ctx, query, alertID, now)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolved alert: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}

	return nil
}
