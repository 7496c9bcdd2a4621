package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
)

// ReactionService implements the reaction toggle and summaries.
type ReactionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	memberships *MembershipService
}

func NewReactionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ReactionService {
	return &ReactionService{
		db:          db,
		repomanager: m,
		memberships: NewMembershipService(db, m, cfg),
	}
}

// React toggles an emoji on a message and reports whether the reaction is
// now present. A repeat of the same emoji removes the existing row instead
// of erroring; a lost insert race against the unique triple takes the same
// no-op outcome as toggling off.
func (s *ReactionService) React(ctx context.Context, contentID, identityID, emoji string) (bool, error) {
	if !chat.ValidEmoji(emoji) {
		return false, chat.NewValidation("emoji", "not a recognized emoji")
	}

	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return false, storageErr(err)
	}
	if content.IsDeleted {
		return false, chat.NewConflict("cannot react to a deleted message")
	}

	if _, err := s.memberships.activeMember(ctx, content.ConversationID, identityID); err != nil {
		return false, err
	}

	repo := s.repomanager.Reactions(s.db)

	existing, err := repo.Find(ctx, contentID, identityID, emoji)
	if err == nil {
		if err := repo.Delete(ctx, existing.ID); err != nil {
			return false, storageErr(err)
		}
		return false, nil
	}
	if !errors.Is(err, chat.ErrNotFound) {
		return false, storageErr(err)
	}

	reaction := &chat.Reaction{
		ID:         uuid.New().String(),
		ContentID:  contentID,
		IdentityID: identityID,
		Emoji:      emoji,
		Category:   chat.CategoryOf(emoji),
		CreatedAt:  time.Now(),
	}
	if err := repo.Create(ctx, reaction); err != nil {
		if dbx.IsUniqueViolation(err) {
			// a concurrent insert of the same triple won; same no-op
			// outcome as toggling off
			return false, nil
		}
		return false, storageErr(err)
	}
	return true, nil
}

// List returns all reactions on a message, oldest first.
func (s *ReactionService) List(ctx context.Context, contentID, actorID string) ([]*chat.Reaction, error) {
	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if _, err := s.memberships.activeMember(ctx, content.ConversationID, actorID); err != nil {
		return nil, err
	}
	out, err := s.repomanager.Reactions(s.db).ListByContent(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// Summary returns per-emoji counts for one message.
func (s *ReactionService) Summary(ctx context.Context, contentID, actorID string) ([]chat.ReactionCount, error) {
	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if _, err := s.memberships.activeMember(ctx, content.ConversationID, actorID); err != nil {
		return nil, err
	}
	out, err := s.repomanager.Reactions(s.db).Summary(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// CleanupOrphaned purges reactions whose parent message has been deleted.
// Called by the periodic sweep.
func (s *ReactionService) CleanupOrphaned(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Reactions(s.db).DeleteOrphaned(ctx)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}
