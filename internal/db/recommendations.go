package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

const insertRecommendationQuery = `
	INSERT INTO optimization_recommendations (
		id, type, title, description, potential_impact,
		action_items, based_on_data, created_at, is_applied
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
`

const selectRecommendationsQuery = `
	SELECT id, type, title, description, potential_impact,
	       action_items, based_on_data, created_at, is_applied, applied_at
	FROM optimization_recommendations
	ORDER BY created_at DESC, id DESC
	LIMIT $1
`

// InsertRecommendations stores a batch of recommendations in one
// transaction. IDs must already be assigned by the caller.
func (db *DB) InsertRecommendations(ctx context.Context, recs []models.OptimizationRecommendation) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		basedOn, err := json.Marshal(rec.BasedOnData)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation data: %w", err)
		}
		_, err = tx.ExecContext(ctx, insertRecommendationQuery,
			rec.ID,
			string(rec.Type),
			rec.Title,
			rec.Description,
			string(rec.PotentialImpact),
			pq.Array(rec.ActionItems),
			basedOn,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recommendations: %w", err)
	}

	return nil
}

// RecentRecommendations returns up to limit recommendations, newest first.
func (db *DB) RecentRecommendations(ctx context.Context, limit int) ([]models.OptimizationRecommendation, error) {
	rows, err := db.conn.QueryContext(ctx, selectRecommendationsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.OptimizationRecommendation
	for rows.Next() {
		var rec models.OptimizationRecommendation
		var recType, impact string
		var basedOn []byte
		if err := rows.Scan(
			&rec.ID,
			&recType,
			&rec.Title,
			&rec.Description,
			&impact,
			pq.Array(&rec.ActionItems),
			&basedOn,
			&rec.CreatedAt,
			&rec.IsApplied,
			&rec.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Type = models.RecommendationType(recType)
		rec.PotentialImpact = models.Impact(impact)
		if len(basedOn) > 0 {
			if err := json.Unmarshal(basedOn, &rec.BasedOnData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal recommendation data: %w", err)
			}
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}

	return recs, nil
}

// MarkRecommendationApplied records that a recommendation has been acted
// on. Applying twice keeps the original applied timestamp. Returns
// ErrRecommendationNotFound if the id does not exist.
func (db *DB) MarkRecommendationApplied(ctx context.Context, recID string) error {
	now := time.Now().UnixMilli()
	query := `
		UPDATE optimization_recommendations
		SET is_applied = TRUE,
		    applied_at = COALESCE(applied_at, $2)
		WHERE id = $1
	`
	result, err := db.conn.ExecContext(ctx, query, recID, now)
	if err != nil {
		return fmt.Errorf("failed to mark recommendation applied: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check applied recommendation: %w", err)
	}
	if affected == 0 {
		return ErrRecommendationNotFound
	}

	return nil
}
