package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// GetSessionMetrics returns the metrics record for a session, or nil if
// the session has never been seen.
func (db *DB) GetSessionMetrics(ctx context.Context, sessionID string) (*models.SessionMetrics, error) {
	query := `
		SELECT session_id, duration_ms, total_tokens, tokens_per_minute,
		       event_count, tool_usage_count, prompt_count,
		       start_time, end_time, is_active, quality_score
		FROM session_metrics
		WHERE session_id = $1
	`

	var m models.SessionMetrics
	err := db.conn.QueryRowContext(ctx, query, sessionID).Scan(
		&m.SessionID,
		&m.DurationMs,
		&m.TotalTokens,
		&m.TokensPerMinute,
		&m.EventCount,
		&m.ToolUsageCount,
		&m.PromptCount,
		&m.StartTime,
		&m.EndTime,
		&m.IsActive,
		&m.QualityScore,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session metrics: %w", err)
	}

	return &m, nil
}

// UpsertSessionMetrics inserts or fully replaces the metrics record for a
// session. The write is atomic per session id.
func (db *DB) UpsertSessionMetrics(ctx context.Context, m *models.SessionMetrics) error {
	ctx, span := tracer.Start(ctx, "db.upsert_session_metrics",
		trace.WithAttributes(attribute.String("session_id", m.SessionID)))
	defer span.End()

	query := `
		INSERT INTO session_metrics (
			session_id, duration_ms, total_tokens, tokens_per_minute,
			event_count, tool_usage_count, prompt_count,
			start_time, end_time, is_active, quality_score, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			duration_ms = EXCLUDED.duration_ms,
			total_tokens = EXCLUDED.total_tokens,
			tokens_per_minute = EXCLUDED.tokens_per_minute,
			event_count = EXCLUDED.event_count,
			tool_usage_count = EXCLUDED.tool_usage_count,
			prompt_count = EXCLUDED.prompt_count,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_active = EXCLUDED.is_active,
			quality_score = EXCLUDED.quality_score,
			updated_at = NOW()
	`
	_, err := db.conn.ExecContext(ctx, query,
		m.SessionID,
		m.DurationMs,
		m.TotalTokens,
		m.TokensPerMinute,
		m.EventCount,
		m.ToolUsageCount,
		m.PromptCount,
		m.StartTime,
		m.EndTime,
		m.IsActive,
		m.QualityScore,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session metrics: %w", err)
	}

	return nil
}

// SessionMetricsSince returns all sessions whose start time falls after
// the given epoch-ms timestamp, newest first.
func (db *DB) SessionMetricsSince(ctx context.Context, since int64) ([]models.SessionMetrics, error) {
	query := `
		SELECT session_id, duration_ms, total_tokens, tokens_per_minute,
		       event_count, tool_usage_count, prompt_count,
		       start_time, end_time, is_active, quality_score
		FROM session_metrics
		WHERE start_time > $1
		ORDER BY start_time DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query session metrics: %w", err)
	}
	defer rows.Close()

	return scanSessionMetrics(rows)
}

// ActiveSessionMetrics returns metrics for every currently-active session.
func (db *DB) ActiveSessionMetrics(ctx context.Context) ([]models.SessionMetrics, error) {
	query := `
		SELECT session_id, duration_ms, total_tokens, tokens_per_minute,
		       event_count, tool_usage_count, prompt_count,
		       start_time, end_time, is_active, quality_score
		FROM session_metrics
		WHERE is_active
		ORDER BY start_time DESC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active session metrics: %w", err)
	}
	defer rows.Close()

	return scanSessionMetrics(rows)
}

// MarkInactiveSessions flips is_active off for sessions whose last event
// predates the cutoff (epoch ms). Returns how many sessions were swept.
func (db *DB) MarkInactiveSessions(ctx context.Context, cutoff int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.mark_inactive_sessions")
	defer span.End()

	query := `
		UPDATE session_metrics
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND end_time < $1
	`
	result, err := db.conn.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark inactive sessions: %w", err)
	}

	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept sessions: %w", err)
	}
	span.SetAttributes(attribute.Int64("sessions.swept", swept))

	return swept, nil
}

func scanSessionMetrics(rows *sql.Rows) ([]models.SessionMetrics, error) {
	var metrics []models.SessionMetrics
	for rows.Next() {
		var m models.SessionMetrics
		if err := rows.Scan(
			&m.SessionID,
			&m.DurationMs,
			&m.TotalTokens,
			&m.TokensPerMinute,
			&m.EventCount,
			&m.ToolUsageCount,
			&m.PromptCount,
			&m.StartTime,
			&m.EndTime,
			&m.IsActive,
			&m.QualityScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session metrics: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session metrics: %w", err)
	}

	return metrics, nil
}
