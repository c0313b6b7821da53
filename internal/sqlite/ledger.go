package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/repository"
)

var _ project.Repository = (*LedgerRepository)(nil)

const projectColumns = `id, description, client, freelancer, amount, deadline, status, deliverable_hash, created_at`

// LedgerRepository implements project.Repository for SQLite
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create inserts a project, its client index entry and its creation event
// in one transaction. The project id comes from the table's AUTOINCREMENT
// sequence, which a rolled back insert does not advance.
func (r *LedgerRepository) Create(ctx context.Context, proj *project.Project, evt *event.Event) error {
	if proj == nil || evt == nil {
		return repository.ErrInvalidInput
	}
	if proj.Amount == nil || proj.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", repository.ErrInvalidInput)
	}
	if proj.CreatedAt.IsZero() {
		proj.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO projects (description, client, freelancer, amount, deadline, status, deliverable_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		proj.Description,
		proj.Client,
		proj.Freelancer,
		proj.Amount.String(),
		strconv.FormatUint(proj.Deadline, 10),
		int(proj.Status),
		proj.DeliverableHash,
		proj.CreatedAt,
		proj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO client_projects (identity, project_id) VALUES (?, ?)`,
		proj.Client, id,
	); err != nil {
		return fmt.Errorf("failed to index client project: %w", err)
	}

	stored := *evt
	stored.ProjectID = uint64(id)
	if err := insertEvent(ctx, tx, &stored); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	proj.ID = uint64(id)
	*evt = stored
	return nil
}

// Get retrieves a project by ID
func (r *LedgerRepository) Get(ctx context.Context, id uint64) (*project.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	proj, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return proj, nil
}

// Count returns the number of projects. Rows are never deleted, so this
// is also the highest allocated id.
func (r *LedgerRepository) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// List returns every project ordered by id
func (r *LedgerRepository) List(ctx context.Context) ([]project.Project, error) {
	return r.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
}

// ListRange returns projects with start <= id <= end
func (r *LedgerRepository) ListRange(ctx context.Context, start, end uint64) ([]project.Project, error) {
	if start > end {
		return []project.Project{}, nil
	}
	return r.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id BETWEEN ? AND ? ORDER BY id`,
		clampID(start), clampID(end),
	)
}

// ClientProjectIDs returns the ids funded by client in creation order
func (r *LedgerRepository) ClientProjectIDs(ctx context.Context, client string) ([]uint64, error) {
	return r.queryIDs(ctx, `SELECT project_id FROM client_projects WHERE identity = ? ORDER BY seq`, client)
}

// FreelancerProjectIDs returns the ids accepted by freelancer in acceptance order
func (r *LedgerRepository) FreelancerProjectIDs(ctx context.Context, freelancer string) ([]uint64, error) {
	return r.queryIDs(ctx, `SELECT project_id FROM freelancer_projects WHERE identity = ? ORDER BY seq`, freelancer)
}

// Apply commits change in one transaction. The status update only matches
// a row still in change.From; any failure rolls back the update, index
// entry, transfer, balance credit and event together.
func (r *LedgerRepository) Apply(ctx context.Context, change *project.Change) error {
	if change == nil {
		return repository.ErrInvalidInput
	}
	proj := change.Project
	now := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE projects
		SET freelancer = ?, status = ?, deliverable_hash = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		proj.Freelancer,
		int(proj.Status),
		proj.DeliverableHash,
		now,
		proj.ID,
		int(change.From),
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, proj.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		return fmt.Errorf("%w: project %d is no longer %s", repository.ErrConflict, proj.ID, change.From)
	}

	if change.IndexFreelancer {
		if proj.Freelancer == "" {
			return fmt.Errorf("%w: freelancer required", repository.ErrInvalidInput)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO freelancer_projects (identity, project_id) VALUES (?, ?)`,
			proj.Freelancer, proj.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: project %d already has a freelancer", repository.ErrConflict, proj.ID)
			}
			return fmt.Errorf("failed to index freelancer project: %w", err)
		}
	}

	if change.Transfer != nil {
		if err := transfer(ctx, tx, proj.ID, change.Transfer, now); err != nil {
			return err
		}
	}

	stored := change.Event
	stored.ProjectID = proj.ID
	if err := insertEvent(ctx, tx, &stored); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	change.Event = stored
	return nil
}

func transfer(ctx context.Context, tx *sql.Tx, projectID uint64, t *project.Transfer, now time.Time) error {
	if t.Recipient == "" || t.Amount == nil || t.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: invalid transfer", repository.ErrInvalidInput)
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (project_id, recipient, amount, created_at) VALUES (?, ?, ?, ?)`,
		projectID, t.Recipient, t.Amount.String(), createdAt,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: project %d already paid out", repository.ErrConflict, projectID)
		}
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to record transfer: %w", err)
	}

	balance, err := balanceOf(ctx, tx, t.Recipient)
	if err != nil {
		return err
	}
	balance.Add(balance, t.Amount)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (identity, amount, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
	`, t.Recipient, balance.String(), now); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// Balance returns the value released to identity
func (r *LedgerRepository) Balance(ctx context.Context, identity string) (*big.Int, error) {
	return balanceOf(ctx, r.db, identity)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func balanceOf(ctx context.Context, q queryRower, identity string) (*big.Int, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT amount FROM balances WHERE identity = ?`, identity).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	balance, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse balance %q", raw)
	}
	return balance, nil
}

func (r *LedgerRepository) queryProjects(ctx context.Context, query string, args ...any) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

func (r *LedgerRepository) queryIDs(ctx context.Context, query string, args ...any) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project ids: %w", err)
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*project.Project, error) {
	var (
		proj     project.Project
		amount   string
		deadline string
		status   int
	)
	err := s.Scan(
		&proj.ID,
		&proj.Description,
		&proj.Client,
		&proj.Freelancer,
		&amount,
		&deadline,
		&status,
		&proj.DeliverableHash,
		&proj.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var ok bool
	if proj.Amount, ok = new(big.Int).SetString(amount, 10); !ok {
		return nil, fmt.Errorf("invalid amount %q for project %d", amount, proj.ID)
	}
	if proj.Deadline, err = strconv.ParseUint(deadline, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid deadline %q for project %d: %w", deadline, proj.ID, err)
	}
	proj.Status = project.Status(status)
	return &proj, nil
}

// clampID keeps range bounds inside SQLite's signed integer range.
func clampID(id uint64) int64 {
	const maxID = uint64(1<<63 - 1)
	if id > maxID {
		return int64(maxID)
	}
	return int64(id)
}
