package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgRecord struct {
	id, name, status string
	errJSON, result  []byte
	startedAt        time.Time
	finishedAt       *time.Time
}

// fakePG emulates the janitor_task table for PGStore, including the partial
// unique index on running rows.
type fakePG struct {
	mu     sync.Mutex
	rows   map[string]*pgRecord
	sweeps int
}

func newFakePG() *fakePG {
	return &fakePG{rows: map[string]*pgRecord{}}
}

func (f *fakePG) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{pg: f}, nil
}

func (f *fakePG) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasPrefix(sql, "DELETE FROM janitor_task"):
		f.sweeps++
		cutoff := args[0].(time.Time)
		n := 0
		for id, r := range f.rows {
			if r.status != string(StatusRunning) && r.finishedAt != nil && r.finishedAt.Before(cutoff) {
				delete(f.rows, id)
				n++
			}
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
	case strings.HasPrefix(sql, "INSERT INTO janitor_task"):
		for _, r := range f.rows {
			if r.status == string(StatusRunning) {
				return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: runningIndex}
			}
		}
		id := args[0].(string)
		f.rows[id] = &pgRecord{id: id, name: args[1].(string), status: args[2].(string), startedAt: args[3].(time.Time)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "UPDATE janitor_task"):
		r, ok := f.rows[args[0].(string)]
		if !ok {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		r.status = args[1].(string)
		r.errJSON = args[2].([]byte)
		r.result = args[3].([]byte)
		r.finishedAt = args[4].(*time.Time)
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", sql)
}

func (f *fakePG) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{rec: *r}
}

func (f *fakePG) Query(context.Context, string, ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]pgRecord, 0, len(f.rows))
	for _, r := range f.rows {
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].startedAt.Before(recs[j].startedAt) })
	return &fakeRows{recs: recs, pos: -1}, nil
}

// fakeTx forwards statements to the table. Methods PGStore never calls are
// left to the embedded nil interface.
type fakeTx struct {
	pgx.Tx
	pg *fakePG
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.pg.Exec(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error   { return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakeRow struct {
	rec pgRecord
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.rec.id
	*dest[1].(*string) = r.rec.name
	*dest[2].(*string) = r.rec.status
	*dest[3].(*[]byte) = r.rec.errJSON
	*dest[4].(*[]byte) = r.rec.result
	*dest[5].(*time.Time) = r.rec.startedAt
	*dest[6].(**time.Time) = r.rec.finishedAt
	return nil
}

type fakeRows struct {
	pgx.Rows
	recs []pgRecord
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.recs)
}

func (r *fakeRows) Scan(dest ...any) error {
	return fakeRow{rec: r.recs[r.pos]}.Scan(dest...)
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }
