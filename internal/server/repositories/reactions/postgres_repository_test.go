package reactions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO reactions`).
		WithArgs("r-1", "c-1", "u-1", "👍", string(chat.CategoryLike), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	re := &chat.Reaction{
		ID: "r-1", ContentID: "c-1", IdentityID: "u-1",
		Emoji: "👍", Category: chat.CategoryLike, CreatedAt: time.Now(),
	}
	if err := repo.Create(context.Background(), re); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_UniqueViolationPassesThrough(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "reactions_content_identity_emoji_unique"}
	mock.ExpectExec(`INSERT INTO reactions`).WillReturnError(pgErr)

	err := repo.Create(context.Background(), &chat.Reaction{ID: "r-1"})
	if !dbx.IsUniqueViolation(err) {
		t.Fatalf("unique violation must pass through raw, got %v", err)
	}
}

func TestFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM reactions\s+WHERE content_id = \$1 AND identity_id = \$2 AND emoji = \$3`).
		WithArgs("c-1", "u-1", "👍").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "c-1", "u-1", "👍")
	if !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDelete_MissingRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM reactions WHERE id = \$1`).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "r-1")
	if !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"emoji", "category", "count"}).
		AddRow("👍", string(chat.CategoryLike), 3).
		AddRow("😂", string(chat.CategoryLaugh), 1)
	mock.ExpectQuery(`SELECT emoji, category, COUNT\(\*\) FROM reactions`).
		WithArgs("c-1").
		WillReturnRows(rows)

	got, err := repo.Summary(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if len(got) != 2 || got[0].Count != 3 || got[0].Category != chat.CategoryLike {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestDeleteOrphaned(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM reactions r\s+USING contents c\s+WHERE r.content_id = c.id AND c.is_deleted = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteOrphaned(context.Background())
	if err != nil {
		t.Fatalf("DeleteOrphaned error: %v", err)
	}
	if n != 5 {
		t.Fatalf("purged = %d, want 5", n)
	}
}
