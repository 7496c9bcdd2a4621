package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/migrations"
	"github.com/secrypt/secrypt/internal/server/repositories/accesslogs"
	"github.com/secrypt/secrypt/internal/server/repositories/attachments"
	"github.com/secrypt/secrypt/internal/server/repositories/contents"
	"github.com/secrypt/secrypt/internal/server/repositories/conversations"
	"github.com/secrypt/secrypt/internal/server/repositories/identities"
	"github.com/secrypt/secrypt/internal/server/repositories/memberships"
	"github.com/secrypt/secrypt/internal/server/repositories/reactions"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Identities(db dbx.DBTX) identities.Repository {
	return identities.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Conversations(db dbx.DBTX) conversations.Repository {
	return conversations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Memberships(db dbx.DBTX) memberships.Repository {
	return memberships.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Contents(db dbx.DBTX) contents.Repository {
	return contents.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Reactions(db dbx.DBTX) reactions.Repository {
	return reactions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Attachments(db dbx.DBTX) attachments.Repository {
	return attachments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AccessLogs(db dbx.DBTX) accesslogs.Repository {
	return accesslogs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
