package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sriramlenka/notekart/internal/model"
)

// NoteRepository persists the catalog of study-note PDFs.
type NoteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository constructs a repository.
func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

// Create inserts a catalog entry after its PDF has been stored.
func (r *NoteRepository) Create(ctx context.Context, n *model.Note) error {
	n.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notes (id, title, description, price, object_key, preview, category, semester, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, n.ID, n.Title, n.Description, n.Price, n.ObjectKey, n.Preview, n.Category, n.Semester, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Get returns a note by id, including its private object key.
func (r *NoteRepository) Get(ctx context.Context, id string) (*model.Note, error) {
	var n model.Note
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, price, object_key, preview, category, semester, created_at
		FROM notes WHERE id=$1
	`, id)
	if err := row.Scan(&n.ID, &n.Title, &n.Description, &n.Price, &n.ObjectKey, &n.Preview, &n.Category, &n.Semester, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("note: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("select note: %w", err)
	}
	return &n, nil
}

// List returns the whole catalog, newest first. Object keys are loaded so
// server-side callers can reach the blob; handlers rely on the json:"-" tag
// to keep them out of responses.
func (r *NoteRepository) List(ctx context.Context) ([]model.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, price, object_key, preview, category, semester, created_at
		FROM notes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.Price, &n.ObjectKey, &n.Preview, &n.Category, &n.Semester, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// SetPreview stores the extracted preview text for a note.
func (r *NoteRepository) SetPreview(ctx context.Context, id, preview string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notes SET preview=$1 WHERE id=$2`, preview, id)
	if err != nil {
		return fmt.Errorf("update preview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note: %w", model.ErrNotFound)
	}
	return nil
}

// Delete removes a catalog entry. The stored PDF must be released by the
// caller; order rows referencing the note are kept as audit history.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note: %w", model.ErrNotFound)
	}
	return nil
}
