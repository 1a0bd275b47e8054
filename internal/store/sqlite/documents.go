package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storynexus/internal/story"
)

// Records are stored as JSON documents in a data column; id and story_id
// are lifted out for lookups.

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, story.ErrNotFound)
}

func decodeDoc[T any](kind, raw string) (*T, error) {
	var doc T
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", kind, err)
	}
	return &doc, nil
}

func loadDoc[T any](ctx context.Context, q queryer, table, kind, id string) (*T, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT data FROM "+table+" WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, err)
	}
	return decodeDoc[T](kind, raw)
}

func (c *Client) insertDoc(ctx context.Context, table, kind, id, storyID string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}

	var query string
	args := []any{id}
	switch table {
	case tableNodes, tableWorlds:
		query = "INSERT INTO " + table + " (id, story_id, data) VALUES (?, ?, ?)"
		args = append(args, storyID)
	default:
		query = "INSERT INTO " + table + " (id, data) VALUES (?, ?)"
	}
	args = append(args, string(data))

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting %s: %w", kind, err)
	}
	return nil
}

// patchDoc reads, mutates and rewrites one document inside a transaction.
func patchDoc[T any](ctx context.Context, db *sql.DB, table, kind, id string, apply func(*T)) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := loadDoc[T](ctx, tx, table, kind, id)
	if err != nil {
		return err
	}
	apply(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE "+table+" SET data = ? WHERE id = ?", string(data), id); err != nil {
		return fmt.Errorf("updating %s: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s patch: %w", kind, err)
	}
	return nil
}

func (c *Client) deleteDoc(ctx context.Context, table, kind, id string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func listDocs[T any](ctx context.Context, db *sql.DB, table, kind string) ([]T, error) {
	rows, err := db.QueryContext(ctx, "SELECT data FROM "+table+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		doc, err := decodeDoc[T](kind, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", kind, err)
	}
	return out, nil
}
