// Package repomanager hands out repositories bound to a database handle.
// Services request repositories against a transactional handle inside
// dbx.WithTx so that several repositories share one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/repositories/accesslogs"
	"github.com/secrypt/secrypt/internal/server/repositories/attachments"
	"github.com/secrypt/secrypt/internal/server/repositories/contents"
	"github.com/secrypt/secrypt/internal/server/repositories/conversations"
	"github.com/secrypt/secrypt/internal/server/repositories/identities"
	"github.com/secrypt/secrypt/internal/server/repositories/memberships"
	"github.com/secrypt/secrypt/internal/server/repositories/reactions"
)

type RepositoryManager interface {
	Identities(db dbx.DBTX) identities.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	Memberships(db dbx.DBTX) memberships.Repository
	Contents(db dbx.DBTX) contents.Repository
	Reactions(db dbx.DBTX) reactions.Repository
	Attachments(db dbx.DBTX) attachments.Repository
	AccessLogs(db dbx.DBTX) accesslogs.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
