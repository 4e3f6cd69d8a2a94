package db

import (
	"context"
	"fmt"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// GetOptimizationRollup aggregates token spend over sessions started after
// the given epoch-ms timestamp.
func (db *DB) GetOptimizationRollup(ctx context.Context, since int64) (*models.OptimizationRollup, error) {
	query := `
		SELECT COALESCE(AVG(total_tokens::float / NULLIF(prompt_count, 0)), 0),
		       COUNT(*),
		       COALESCE(AVG(total_tokens), 0)
		FROM session_metrics
		WHERE start_time > $1
	`

	var rollup models.OptimizationRollup
	err := db.conn.QueryRowContext(ctx, query, since).Scan(
		&rollup.AvgTokensPerTask,
		&rollup.SessionCount,
		&rollup.AvgDailyTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query optimization rollup: %w", err)
	}

	return &rollup, nil
}

// GetBehaviorRollup aggregates tool and prompt usage over sessions started
// after the given epoch-ms timestamp.
func (db *DB) GetBehaviorRollup(ctx context.Context, since int64) (*models.BehaviorRollup, error) {
	query := `
		SELECT COALESCE(AVG(tool_usage_count::float / NULLIF(event_count, 0)), 0),
		       COUNT(*),
		       COALESCE(AVG(event_count), 0),
		       COALESCE(AVG(prompt_count), 0)
		FROM session_metrics
		WHERE start_time > $1
	`

	var rollup models.BehaviorRollup
	err := db.conn.QueryRowContext(ctx, query, since).Scan(
		&rollup.AvgToolUsageRatio,
		&rollup.SessionCount,
		&rollup.AvgEventsPerSession,
		&rollup.AvgPromptsPerSession,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query behavior rollup: %w", err)
	}

	return &rollup, nil
}

// GetCostRollup aggregates token cost drivers over sessions started after
// the given epoch-ms timestamp.
func (db *DB) GetCostRollup(ctx context.Context, since int64) (*models.CostRollup, error) {
	query := `
		SELECT COALESCE(AVG(total_tokens), 0),
		       COALESCE(AVG(total_tokens::float / NULLIF(prompt_count, 0)), 0),
		       COUNT(*)
		FROM session_metrics
		WHERE start_time > $1
	`

	var rollup models.CostRollup
	err := db.conn.QueryRowContext(ctx, query, since).Scan(
		&rollup.AvgDailyTokens,
		&rollup.AvgTokensPerPrompt,
		&rollup.SessionCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost rollup: %w", err)
	}

	return &rollup, nil
}

// GetDataSummary reports overall corpus size for the summary endpoint.
func (db *DB) GetDataSummary(ctx context.Context) (*models.DataSummary, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(DISTINCT session_id),
		       COALESCE(MAX(timestamp) - MIN(timestamp), 0)
		FROM events
	`

	var summary models.DataSummary
	var spanMs int64
	err := db.conn.QueryRowContext(ctx, query).Scan(
		&summary.TotalEvents,
		&summary.TotalSessions,
		&spanMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query data summary: %w", err)
	}
	summary.HistorySpanDays = int(spanMs / (24 * 60 * 60 * 1000))

	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_metrics WHERE is_active`).Scan(&summary.ActiveSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to count active sessions: %w", err)
	}

	return &summary, nil
}
