// Package upload implements upload admission and token-gated deletion.
package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no record matches a deletion token and author.
var ErrNotFound = errors.New("upload record not found")

// ErrConflict is returned when a record clashes with an existing filename or
// deletion token.
var ErrConflict = errors.New("upload record conflicts with an existing one")

// Record is an image or video upload row.
type Record struct {
	Author     int64
	Filename   string
	DeletionID string
}

// AudioRecord is an audio upload row.
type AudioRecord struct {
	Record
	Title           string
	SoundgasmAuthor string
}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repository handles upload record persistence.
type Repository struct {
	db DB
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// InsertImage records an image upload in its own transaction.
func (r *Repository) InsertImage(ctx context.Context, rec Record) error {
	return r.insert(ctx,
		`INSERT INTO images (author, filename, deletion_id) VALUES ($1, $2, $3)`,
		rec.Author, rec.Filename, rec.DeletionID,
	)
}

// InsertAudio records an audio upload in its own transaction. Empty title
// and author are stored as NULL.
func (r *Repository) InsertAudio(ctx context.Context, rec AudioRecord) error {
	return r.insert(ctx,
		`INSERT INTO audio (author, filename, title, soundgasm_author, deletion_id) VALUES ($1, $2, $3, $4, $5)`,
		rec.Author, rec.Filename, nullable(rec.Title), nullable(rec.SoundgasmAuthor), rec.DeletionID,
	)
}

// DeleteImage removes the image row matching deletionID and author and
// returns its filename.
func (r *Repository) DeleteImage(ctx context.Context, deletionID string, author int64) (string, error) {
	return r.delete(ctx,
		`DELETE FROM images WHERE deletion_id = $1 AND author = $2 RETURNING filename`,
		deletionID, author,
	)
}

// DeleteAudio removes the audio row matching deletionID and author and
// returns its filename.
func (r *Repository) DeleteAudio(ctx context.Context, deletionID string, author int64) (string, error) {
	return r.delete(ctx,
		`DELETE FROM audio WHERE deletion_id = $1 AND author = $2 RETURNING filename`,
		deletionID, author,
	)
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) insert(ctx context.Context, query string, args ...any) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert upload: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upload: %w", err)
	}
	return nil
}

func (r *Repository) delete(ctx context.Context, query string, deletionID string, author int64) (string, error) {
	var filename string
	err := r.db.QueryRow(ctx, query, deletionID, author).Scan(&filename)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete upload: %w", err)
	}
	return filename, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
