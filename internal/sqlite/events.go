package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/repository"
)

var _ event.Repository = (*EventRepository)(nil)

// EventRepository implements event.Repository for SQLite
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// insertEvent appends evt inside tx and sets its Seq.
func insertEvent(ctx context.Context, tx *sql.Tx, evt *event.Event) error {
	if evt.EventID == "" || !evt.Type.Valid() {
		return fmt.Errorf("%w: event id and type are required", repository.ErrInvalidInput)
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}

	var details sql.NullString
	if len(evt.Details) > 0 {
		raw, err := json.Marshal(evt.Details)
		if err != nil {
			return fmt.Errorf("failed to encode event details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events (event_id, project_id, type, actor, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		evt.EventID,
		evt.ProjectID,
		string(evt.Type),
		evt.Actor,
		details,
		evt.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: duplicate event %s", repository.ErrConflict, evt.EventID)
		}
		return fmt.Errorf("failed to record event: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event seq: %w", err)
	}
	evt.Seq = seq
	return nil
}

// List returns events matching the given filters in commit order
func (r *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	query := `
		SELECT seq, event_id, project_id, type, actor, details, created_at
		FROM events
		WHERE seq > ?
	`

	args := []any{opts.AfterSeq}
	conditions := []string{}

	if opts.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *opts.ProjectID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, string(*opts.Type))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY seq"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var (
			evt     event.Event
			typ     string
			details sql.NullString
		)
		if err := rows.Scan(
			&evt.Seq,
			&evt.EventID,
			&evt.ProjectID,
			&typ,
			&evt.Actor,
			&details,
			&evt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Type = event.Type(typ)
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &evt.Details); err != nil {
				return nil, fmt.Errorf("failed to decode details for event %d: %w", evt.Seq, err)
			}
		}
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}
