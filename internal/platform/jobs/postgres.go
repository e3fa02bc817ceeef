package jobs

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhos/janitor/internal/platform/db"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const runningIndex = "janitor_task_one_running"

// pgPool is the subset of *pgxpool.Pool used by PGStore.
type pgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps the registry in the janitor_task table. A partial unique
// index on running rows makes admission atomic across replicas.
type PGStore struct {
	pool      pgPool
	retention time.Duration
}

// NewPGStore returns a store over pool. Call Migrate before first use.
func NewPGStore(pool pgPool, retention time.Duration) *PGStore {
	return &PGStore{pool: pool, retention: retention}
}

// Migrations exposes the embedded schema files.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// MigrationTable tracks which task store migrations have run.
const MigrationTable = "_janitor_migrations"

// NewMigrator returns a migrator for the task store schema.
func NewMigrator(pool *pgxpool.Pool) *db.Migrator {
	return db.NewMigrator(pool, Migrations(), MigrationTable)
}

// Migrate creates the janitor_task table if needed.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	return NewMigrator(pool).Up(ctx)
}

const taskColumns = `id, name, status, error, result, started_at, finished_at`

func (s *PGStore) Admit(ctx context.Context, task *Task) error {
	task.Status = StatusRunning
	if task.StartedAt.IsZero() {
		task.StartedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin admit: %w", err)
	}
	defer tx.Rollback(ctx)

	if s.retention > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM janitor_task WHERE status <> 'running' AND finished_at < $1`,
			time.Now().Add(-s.retention),
		); err != nil {
			return fmt.Errorf("sweep tasks: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO janitor_task (`+taskColumns+`) VALUES ($1, $2, $3, NULL, NULL, $4, NULL)`,
		task.ID, task.Name, string(task.Status), task.StartedAt,
	)
	if err != nil {
		if isRunningConflict(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM janitor_task WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (s *PGStore) Set(ctx context.Context, task *Task) error {
	var errJSON []byte
	if task.Error != nil {
		b, err := json.Marshal(task.Error)
		if err != nil {
			return fmt.Errorf("encode task error: %w", err)
		}
		errJSON = b
	}
	var result []byte
	if len(task.Result) > 0 {
		result = task.Result
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE janitor_task SET status = $2, error = $3, result = $4, finished_at = $5 WHERE id = $1`,
		task.ID, string(task.Status), errJSON, result, task.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]*Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM janitor_task ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row pgx.Row) (*Task, error) {
	var (
		t       Task
		status  string
		errJSON []byte
		result  []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &status, &errJSON, &result, &t.StartedAt, &t.FinishedAt); err != nil {
		return nil, err
	}
	t.Status = Status(status)
	if len(errJSON) > 0 {
		t.Error = &TaskError{}
		if err := json.Unmarshal(errJSON, t.Error); err != nil {
			return nil, fmt.Errorf("decode task error: %w", err)
		}
	}
	if len(result) > 0 {
		t.Result = json.RawMessage(result)
	}
	return &t, nil
}

func isRunningConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == runningIndex
}
