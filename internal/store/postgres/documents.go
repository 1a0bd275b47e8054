package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storynexus/internal/story"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, story.ErrNotFound)
}

func decodeDoc[T any](kind string, raw []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", kind, err)
	}
	return &doc, nil
}

func loadDoc[T any](ctx context.Context, q rowQuerier, query, kind, id string) (*T, error) {
	var raw []byte
	err := q.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, err)
	}
	return decodeDoc[T](kind, raw)
}

func getDoc[T any](ctx context.Context, pool *pgxpool.Pool, table, kind, id string) (*T, error) {
	return loadDoc[T](ctx, pool, "SELECT data FROM "+table+" WHERE id = $1", kind, id)
}

func (c *Client) insertDoc(ctx context.Context, table, kind, id, storyID string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}

	switch table {
	case tableNodes, tableWorlds:
		_, err = c.pool.Exec(ctx, "INSERT INTO "+table+" (id, story_id, data) VALUES ($1, $2, $3)", id, storyID, data)
	default:
		_, err = c.pool.Exec(ctx, "INSERT INTO "+table+" (id, data) VALUES ($1, $2)", id, data)
	}
	if err != nil {
		return fmt.Errorf("inserting %s: %w", kind, err)
	}
	return nil
}

// patchDoc locks the row, applies the patch and writes the document back.
func patchDoc[T any](ctx context.Context, pool *pgxpool.Pool, table, kind, id string, apply func(*T)) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := loadDoc[T](ctx, tx, "SELECT data FROM "+table+" WHERE id = $1 FOR UPDATE", kind, id)
	if err != nil {
		return err
	}
	apply(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	if _, err := tx.Exec(ctx, "UPDATE "+table+" SET data = $1 WHERE id = $2", data, id); err != nil {
		return fmt.Errorf("updating %s: %w", kind, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %s patch: %w", kind, err)
	}
	return nil
}

func (c *Client) deleteDoc(ctx context.Context, table, kind, id string) error {
	tag, err := c.pool.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(kind, id)
	}
	return nil
}

func listDocs[T any](ctx context.Context, pool *pgxpool.Pool, table, kind string) ([]T, error) {
	rows, err := pool.Query(ctx, "SELECT data FROM "+table+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var raw []byte
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
