package persist

import (
	"context"
	"fmt"
)

// JournalEntry is one lifecycle row.
type JournalEntry struct {
	Tick     uint64
	EntityID uint64
	Name     string
	Kind     string // "spawn", "disconnect", "death", "displaced"
	X, Y     int
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

func (r *JournalRepo) insertSQL() string {
	if r.db.Dialect == DialectPostgres {
		return `INSERT INTO journal (tick, entity_id, name, kind, x, y) VALUES ($1, $2, $3, $4, $5, $6)`
	}
	return `INSERT INTO journal (tick, entity_id, name, kind, x, y) VALUES (?, ?, ?, ?, ?, ?)`
}

// Write inserts a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.insertSQL())
	if err != nil {
		return fmt.Errorf("journal prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			int64(e.Tick), int64(e.EntityID), e.Name, e.Kind, e.X, e.Y,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	q := `SELECT tick, entity_id, name, kind, x, y FROM journal ORDER BY id DESC LIMIT ?`
	if r.db.Dialect == DialectPostgres {
		q = `SELECT tick, entity_id, name, kind, x, y FROM journal ORDER BY id DESC LIMIT $1`
	}
	rows, err := r.db.SQL.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var tick, id int64
		if err := rows.Scan(&tick, &id, &e.Name, &e.Kind, &e.X, &e.Y); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.Tick, e.EntityID = uint64(tick), uint64(id)
		out = append(out, e)
	}
	return out, rows.Err()
}
