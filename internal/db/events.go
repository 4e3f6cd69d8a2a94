package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// InsertEvent stores a new event and returns it with the assigned id.
func (db *DB) InsertEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "db.insert_event",
		trace.WithAttributes(
			attribute.String("session_id", event.SessionID),
			attribute.String("event_type", string(event.EventType)),
		))
	defer span.End()

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (source_app, session_id, event_type, payload, summary, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	stored := *event
	err = db.conn.QueryRowContext(ctx, query,
		event.SourceApp,
		event.SessionID,
		string(event.EventType),
		payload,
		nullableString(event.Summary),
		event.Timestamp,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return &stored, nil
}

// RecentSessionEvents returns up to limit most recent events for a session
// in chronological order.
func (db *DB) RecentSessionEvents(ctx context.Context, sessionID string, limit int) ([]models.Event, error) {
	query := `
		SELECT id, source_app, session_id, event_type, payload, summary, timestamp
		FROM (
			SELECT id, source_app, session_id, event_type, payload, summary, timestamp
			FROM events
			WHERE session_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// SessionEvents returns the full event history for a session in
// chronological order. Used by batch reprocessing.
func (db *DB) SessionEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	query := `
		SELECT id, source_app, session_id, event_type, payload, summary, timestamp
		FROM events
		WHERE session_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// SessionIDs returns every distinct session id present in the event log.
func (db *DB) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT session_id FROM events ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session ids: %w", err)
	}

	return ids, nil
}

// EventKindUsage returns how many events of each kind arrived since the
// given epoch-ms timestamp.
func (db *DB) EventKindUsage(ctx context.Context, since int64) (map[models.EventType]int, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM events
		WHERE timestamp > $1
		GROUP BY event_type
	`

	rows, err := db.conn.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query event kind usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[models.EventType]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event kind usage: %w", err)
		}
		usage[models.EventType(kind)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event kind usage: %w", err)
	}

	return usage, nil
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var payload []byte
		var summary *string
		if err := rows.Scan(&ev.ID, &ev.SourceApp, &ev.SessionID, &ev.EventType, &payload, &summary, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}
		if summary != nil {
			ev.Summary = *summary
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
