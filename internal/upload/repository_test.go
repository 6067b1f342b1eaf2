package upload

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

var (
	insertImage = regexp.QuoteMeta(`INSERT INTO images (author, filename, deletion_id) VALUES ($1, $2, $3)`)
	insertAudio = regexp.QuoteMeta(`INSERT INTO audio (author, filename, title, soundgasm_author, deletion_id)`)
	deleteImage = regexp.QuoteMeta(`DELETE FROM images WHERE deletion_id = $1 AND author = $2 RETURNING filename`)
	deleteAudio = regexp.QuoteMeta(`DELETE FROM audio WHERE deletion_id = $1 AND author = $2 RETURNING filename`)
)

func TestRepository_InsertImage(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertImage).
		WithArgs(int64(7), "abc.png", "tok").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.InsertImage(context.Background(), Record{Author: 7, Filename: "abc.png", DeletionID: "tok"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertImage_UniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertImage).
		WithArgs(int64(7), "abc.png", "tok").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.InsertImage(context.Background(), Record{Author: 7, Filename: "abc.png", DeletionID: "tok"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertImage_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertImage).
		WithArgs(int64(7), "abc.png", "tok").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.InsertImage(context.Background(), Record{Author: 7, Filename: "abc.png", DeletionID: "tok"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertImage_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	err := repo.InsertImage(context.Background(), Record{Author: 7, Filename: "abc.png", DeletionID: "tok"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertAudio(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertAudio).
		WithArgs(int64(7), "song.mp3", pgxmock.AnyArg(), pgxmock.AnyArg(), "tok").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.InsertAudio(context.Background(), AudioRecord{
		Record: Record{Author: 7, Filename: "song.mp3", DeletionID: "tok"},
		Title:  "Rain",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(deleteImage).
		WithArgs("tok", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).AddRow("abc.png"))
	mock.ExpectQuery(deleteAudio).
		WithArgs("tok2", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).AddRow("song.mp3"))

	name, err := repo.DeleteImage(context.Background(), "tok", 7)
	require.NoError(t, err)
	assert.Equal(t, "abc.png", name)

	name, err = repo.DeleteAudio(context.Background(), "tok2", 7)
	require.NoError(t, err)
	assert.Equal(t, "song.mp3", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(deleteImage).
		WithArgs("tok", int64(8)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.DeleteImage(context.Background(), "tok", 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Ping(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.NoError(t, repo.Ping(context.Background()))
	assert.Error(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("x"))
	assert.Equal(t, "x", *nullable("x"))
}
